package store

import (
	"context"
	"sync"
)

// Notifier carries "collection changed" signals from writers to live subscriptions.
type Notifier interface {
	Publish(ctx context.Context, collection string)
	Subscribe(collection string) (<-chan struct{}, func())
}

// Broadcaster is the in-process Notifier. Signals coalesce: a subscriber that
// has not consumed the previous signal does not queue another one.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[int]chan struct{})}
}

func (b *Broadcaster) Publish(_ context.Context, collection string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (b *Broadcaster) Subscribe(collection string) (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan struct{}, 1)
	if b.subs[collection] == nil {
		b.subs[collection] = make(map[int]chan struct{})
	}
	b.subs[collection][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if m := b.subs[collection]; m != nil {
				delete(m, id)
				if len(m) == 0 {
					delete(b.subs, collection)
				}
			}
		})
	}
}
