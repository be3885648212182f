package booking

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	// sideEffectTimeout bounds one event publish or one email.
	sideEffectTimeout = 10 * time.Second
	sideEffectBacklog = 256
)

// effects runs the best-effort work that follows a booking write (lifecycle
// events, customer emails) on one background goroutine, in submission order.
type effects struct {
	queue   chan func(context.Context)
	pending sync.WaitGroup
	once    sync.Once
	done    chan struct{}
}

func newEffects() *effects {
	e := &effects{
		queue: make(chan func(context.Context), sideEffectBacklog),
		done:  make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *effects) run() {
	defer close(e.done)
	for job := range e.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		job(ctx)
		cancel()
		e.pending.Done()
	}
}

// submit never blocks the caller. When the backlog is full the job is dropped.
func (e *effects) submit(name string, job func(context.Context)) {
	e.pending.Add(1)
	select {
	case e.queue <- job:
	default:
		e.pending.Done()
		log.Printf("booking: side effect backlog full, dropped %s", name)
	}
}

func (e *effects) close() {
	e.once.Do(func() { close(e.queue) })
	<-e.done
}
