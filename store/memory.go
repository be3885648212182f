package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memDoc struct {
	data    map[string]interface{}
	version int64
	seq     int64
}

// Memory is an in-process Store with the same semantics as Postgres.
type Memory struct {
	mu          sync.RWMutex
	txMu        sync.Mutex
	seq         int64
	collections map[string]map[string]*memDoc
	notifier    Notifier
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty store. A nil notifier gets a private Broadcaster.
func NewMemory(notifier Notifier) *Memory {
	if notifier == nil {
		notifier = NewBroadcaster()
	}
	return &Memory{
		collections: make(map[string]map[string]*memDoc),
		notifier:    notifier,
	}
}

func (m *Memory) snapshot(id string, d *memDoc) Document {
	return Document{ID: id, Data: deepCopy(d.data).(map[string]interface{}), Version: d.version}
}

func (m *Memory) Find(_ context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	doc := m.snapshot(id, d)
	return &doc, nil
}

func (m *Memory) All(ctx context.Context, collection string) ([]Document, error) {
	return m.Get(ctx, Q(collection))
}

func (m *Memory) Get(_ context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	m.mu.RLock()
	type row struct {
		doc Document
		seq int64
	}
	var rows []row
	for id, d := range m.collections[q.Collection] {
		ok, err := matchesAll(id, d.data, q.Filters)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		if ok {
			rows = append(rows, row{doc: m.snapshot(id, d), seq: d.seq})
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		if q.OrderBy != "" {
			a, aok := rows[i].doc.Data[q.OrderBy]
			b, bok := rows[j].doc.Data[q.OrderBy]
			if aok && bok {
				if c, ok := compare(a, b); ok && c != 0 {
					if q.Desc {
						return c > 0
					}
					return c < 0
				}
			} else if aok != bok {
				// missing sorts as the largest value, like SQL NULL
				if q.Desc {
					return bok
				}
				return aok
			}
		}
		if q.Desc && q.OrderBy != "" {
			return rows[i].seq > rows[j].seq
		}
		return rows[i].seq < rows[j].seq
	})

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	out := make([]Document, len(rows))
	for i, r := range rows {
		out[i] = r.doc
	}
	return out, nil
}

func (m *Memory) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id, err := m.add(collection, data, nil)
	if err != nil {
		return "", err
	}
	m.notifier.Publish(ctx, collection)
	return id, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if err := m.set(collection, id, data, nil); err != nil {
		return err
	}
	m.notifier.Publish(ctx, collection)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, patch map[string]interface{}, preconditions ...Filter) error {
	if err := m.update(collection, id, patch, preconditions, nil); err != nil {
		return err
	}
	m.notifier.Publish(ctx, collection)
	return nil
}

func (m *Memory) Remove(ctx context.Context, collection, id string) error {
	if err := m.remove(collection, id, nil); err != nil {
		return err
	}
	m.notifier.Publish(ctx, collection)
	return nil
}

// put stores a new document; callers hold mu.
func (m *Memory) put(collection, id string, data map[string]interface{}) {
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]*memDoc)
	}
	m.seq++
	m.collections[collection][id] = &memDoc{data: data, version: 1, seq: m.seq}
}

func (m *Memory) add(collection string, data map[string]interface{}, undo *undoLog) (string, error) {
	id := uuid.NewString()
	norm, err := normalizeMap(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	undo.save(m, collection, id)
	m.put(collection, id, norm)
	return id, nil
}

func (m *Memory) set(collection, id string, data map[string]interface{}, undo *undoLog) error {
	norm, err := normalizeMap(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	undo.save(m, collection, id)
	if d, ok := m.collections[collection][id]; ok {
		for k, v := range norm {
			d.data[k] = v
		}
		d.version++
	} else {
		m.put(collection, id, norm)
	}
	return nil
}

func (m *Memory) update(collection, id string, patch map[string]interface{}, preconditions []Filter, undo *undoLog) error {
	norm, err := normalizeMap(patch)
	if err != nil {
		return err
	}
	for _, f := range preconditions {
		if err := validateFilter(f); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	holds, err := matchesAll(id, d.data, preconditions)
	if err != nil {
		return err
	}
	if !holds {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrConflict)
	}
	undo.save(m, collection, id)
	for k, v := range norm {
		d.data[k] = v
	}
	d.version++
	return nil
}

func (m *Memory) remove(collection, id string, undo *undoLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection][id]; !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	undo.save(m, collection, id)
	delete(m.collections[collection], id)
	return nil
}

type docKey struct{ collection, id string }

// undoLog keeps the state each document had before a transaction first
// touched it. A nil entry means the document did not exist.
type undoLog struct {
	prior   map[docKey]*memDoc
	touched []string
}

// save records the prior state of collection/id; callers hold mu.
// A nil log records nothing.
func (u *undoLog) save(m *Memory, collection, id string) {
	if u == nil {
		return
	}
	u.touched = append(u.touched, collection)
	key := docKey{collection, id}
	if _, ok := u.prior[key]; ok {
		return
	}
	var prior *memDoc
	if d, ok := m.collections[collection][id]; ok {
		prior = &memDoc{data: deepCopy(d.data).(map[string]interface{}), version: d.version, seq: d.seq}
	}
	u.prior[key] = prior
}

func (u *undoLog) restore(m *Memory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, prior := range u.prior {
		if prior == nil {
			delete(m.collections[key.collection], key.id)
			continue
		}
		if m.collections[key.collection] == nil {
			m.collections[key.collection] = make(map[string]*memDoc)
		}
		m.collections[key.collection][key.id] = prior
	}
}

// memTx is the Store handed to a RunInTx callback. Reads see the live store;
// writes are logged so a failed callback undoes exactly what it wrote.
type memTx struct {
	m    *Memory
	undo *undoLog
}

var _ Store = (*memTx)(nil)

func (t *memTx) Find(ctx context.Context, collection, id string) (*Document, error) {
	return t.m.Find(ctx, collection, id)
}

func (t *memTx) All(ctx context.Context, collection string) ([]Document, error) {
	return t.m.All(ctx, collection)
}

func (t *memTx) Get(ctx context.Context, q Query) ([]Document, error) {
	return t.m.Get(ctx, q)
}

func (t *memTx) Add(_ context.Context, collection string, data map[string]interface{}) (string, error) {
	return t.m.add(collection, data, t.undo)
}

func (t *memTx) Set(_ context.Context, collection, id string, data map[string]interface{}) error {
	return t.m.set(collection, id, data, t.undo)
}

func (t *memTx) Update(_ context.Context, collection, id string, patch map[string]interface{}, preconditions ...Filter) error {
	return t.m.update(collection, id, patch, preconditions, t.undo)
}

func (t *memTx) Remove(_ context.Context, collection, id string) error {
	return t.m.remove(collection, id, t.undo)
}

func (t *memTx) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, t)
}

func (t *memTx) Changes(collection string) (<-chan struct{}, func()) {
	return t.m.Changes(collection)
}

// RunInTx serializes transactions. When fn fails, only the documents it wrote
// are put back. Change signals for the touched collections go out once fn
// returns, on commit and on rollback alike, since readers outside the
// transaction may have seen its writes.
func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	undo := &undoLog{prior: make(map[docKey]*memDoc)}
	err := func() error {
		m.txMu.Lock()
		defer m.txMu.Unlock()
		if err := fn(ctx, &memTx{m: m, undo: undo}); err != nil {
			undo.restore(m)
			return err
		}
		return nil
	}()

	seen := make(map[string]bool, len(undo.touched))
	for _, c := range undo.touched {
		if !seen[c] {
			seen[c] = true
			m.notifier.Publish(ctx, c)
		}
	}
	return err
}

func (m *Memory) Changes(collection string) (<-chan struct{}, func()) {
	return m.notifier.Subscribe(collection)
}
