package store

import (
	"context"
	"sync/atomic"
)

// Subscription is a live query. The handler receives the full result set once
// at start and again after every change to the collection.
type Subscription struct {
	live   atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe starts a live query on s. Snapshots are delivered sequentially from
// a single goroutine, so handler never runs concurrently with itself.
func Subscribe(ctx context.Context, s Store, q Query, handler func([]Document, error)) *Subscription {
	// register before the first read so no write can slip between the two
	changes, unsubscribe := s.Changes(q.Collection)
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	sub.live.Store(true)

	go func() {
		defer close(sub.done)
		defer unsubscribe()
		sub.deliver(ctx, s, q, handler)
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				sub.deliver(ctx, s, q, handler)
			}
		}
	}()
	return sub
}

func (sub *Subscription) deliver(ctx context.Context, s Store, q Query, handler func([]Document, error)) {
	docs, err := s.Get(Quiet(ctx), q)
	if !sub.live.Load() || ctx.Err() != nil {
		return
	}
	handler(docs, err)
}

// Close stops the subscription. A snapshot that is being read when Close is
// called is dropped rather than delivered. Close is safe to call from the handler.
func (sub *Subscription) Close() {
	if sub.live.CompareAndSwap(true, false) {
		sub.cancel()
	}
}

// Done is closed once the delivery goroutine has exited.
func (sub *Subscription) Done() <-chan struct{} { return sub.done }
