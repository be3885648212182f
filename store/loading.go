package store

import (
	"context"
	"sync/atomic"
)

// Loading counts store calls in flight. It is the process-wide "busy" flag
// surfaced on the health endpoint.
type Loading struct {
	n atomic.Int64
}

func (l *Loading) open() func() {
	l.n.Add(1)
	return func() { l.n.Add(-1) }
}

// Busy reports whether any tracked call is in flight.
func (l *Loading) Busy() bool { return l.n.Load() > 0 }

// InFlight returns the number of tracked calls in flight.
func (l *Loading) InFlight() int64 { return l.n.Load() }

type quietKey struct{}

// Quiet marks ctx so that calls made with it do not toggle the loading flag.
func Quiet(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey{}, true)
}

func isQuiet(ctx context.Context) bool {
	q, _ := ctx.Value(quietKey{}).(bool)
	return q
}

type tracked struct {
	Store
	loading *Loading
}

// Tracked wraps s so every call raises the loading flag for its duration.
// The flag is always released, whether the call fails or not.
func Tracked(s Store, l *Loading) Store {
	return &tracked{Store: s, loading: l}
}

func (t *tracked) track(ctx context.Context) func() {
	if isQuiet(ctx) {
		return func() {}
	}
	return t.loading.open()
}

func (t *tracked) Find(ctx context.Context, collection, id string) (*Document, error) {
	defer t.track(ctx)()
	return t.Store.Find(ctx, collection, id)
}

func (t *tracked) All(ctx context.Context, collection string) ([]Document, error) {
	defer t.track(ctx)()
	return t.Store.All(ctx, collection)
}

func (t *tracked) Get(ctx context.Context, q Query) ([]Document, error) {
	defer t.track(ctx)()
	return t.Store.Get(ctx, q)
}

func (t *tracked) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	defer t.track(ctx)()
	return t.Store.Add(ctx, collection, data)
}

func (t *tracked) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	defer t.track(ctx)()
	return t.Store.Set(ctx, collection, id, data)
}

func (t *tracked) Update(ctx context.Context, collection, id string, patch map[string]interface{}, preconditions ...Filter) error {
	defer t.track(ctx)()
	return t.Store.Update(ctx, collection, id, patch, preconditions...)
}

func (t *tracked) Remove(ctx context.Context, collection, id string) error {
	defer t.track(ctx)()
	return t.Store.Remove(ctx, collection, id)
}

// RunInTx holds the flag for the whole transaction; calls inside it are quiet.
func (t *tracked) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	defer t.track(ctx)()
	return t.Store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		return fn(Quiet(ctx), tx)
	})
}
