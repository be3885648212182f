package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AddFindRemove(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)

	id, err := m.Add(ctx, "users", map[string]interface{}{"name": "Ana", "active": true})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := m.Find(ctx, "users", id)
	require.NoError(t, err)
	assert.Equal(t, "Ana", doc.Data["name"])
	assert.Equal(t, int64(1), doc.Version)

	require.NoError(t, m.Remove(ctx, "users", id))
	_, err = m.Find(ctx, "users", id)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(m.Remove(ctx, "users", id), ErrNotFound))
}

func TestMemory_GetFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	seed := []map[string]interface{}{
		{"providerId": "p1", "status": "Pending", "price": 100, "tags": []string{"a", "b"}},
		{"providerId": "p1", "status": "Cancelled", "price": 300, "tags": []string{"b"}},
		{"providerId": "p2", "status": "Completed", "price": 200},
	}
	for _, d := range seed {
		_, err := m.Add(ctx, "bookings", d)
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		filters []Filter
		want    int
	}{
		{"equality", []Filter{Where("providerId", OpEq, "p1")}, 2},
		{"inequality", []Filter{Where("providerId", OpEq, "p1"), Where("status", OpNeq, "Cancelled")}, 1},
		{"in", []Filter{Where("status", OpIn, []string{"Pending", "Completed"})}, 2},
		{"range", []Filter{Where("price", OpGte, 200)}, 2},
		{"array contains", []Filter{Where("tags", OpArrayContains, "b")}, 2},
		{"missing field never matches", []Filter{Where("tags", OpNeq, "x")}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := m.Get(ctx, Q("bookings", tt.filters...))
			require.NoError(t, err)
			assert.Len(t, docs, tt.want)
		})
	}
}

func TestMemory_GetRejectsBadQueries(t *testing.T) {
	m := NewMemory(nil)
	_, err := m.Get(context.Background(), Q("bookings", Where("a'; drop", OpEq, 1)))
	assert.ErrorIs(t, err, ErrInvalidField)
	_, err = m.Get(context.Background(), Q("bookings", Where("status", OpIn, "Pending")))
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = m.Get(context.Background(), Q("bookings", Where("status", Op("~"), "x")))
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestMemory_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	for _, at := range []string{"2024-01-02", "2024-01-01", "2024-01-03", "2024-01-01"} {
		_, err := m.Add(ctx, "messages", map[string]interface{}{"sentAt": at})
		require.NoError(t, err)
	}

	asc, err := m.Get(ctx, Q("messages").Order("sentAt", false))
	require.NoError(t, err)
	var got []string
	for _, d := range asc {
		got = append(got, d.Data["sentAt"].(string))
	}
	assert.Equal(t, []string{"2024-01-01", "2024-01-01", "2024-01-02", "2024-01-03"}, got)

	desc, err := m.Get(ctx, Q("messages").Order("sentAt", true).Take(2))
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, "2024-01-03", desc[0].Data["sentAt"])
}

func TestMemory_SetMerges(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)

	require.NoError(t, m.Set(ctx, "users", "u1", map[string]interface{}{"name": "Ana", "isOnline": false}))
	require.NoError(t, m.Set(ctx, "users", "u1", map[string]interface{}{"isOnline": true}))

	doc, err := m.Find(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", doc.Data["name"])
	assert.Equal(t, true, doc.Data["isOnline"])
	assert.Equal(t, int64(2), doc.Version)
}

func TestMemory_UpdatePreconditions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	id, err := m.Add(ctx, "bookings", map[string]interface{}{"status": "Pending"})
	require.NoError(t, err)

	err = m.Update(ctx, "bookings", id, map[string]interface{}{"status": "Confirmed"}, Where("status", OpEq, "Pending"))
	require.NoError(t, err)

	// a second writer still holding the old status loses
	err = m.Update(ctx, "bookings", id, map[string]interface{}{"status": "Declined"}, Where("status", OpEq, "Pending"))
	assert.ErrorIs(t, err, ErrConflict)

	doc, err := m.Find(ctx, "bookings", id)
	require.NoError(t, err)
	assert.Equal(t, "Confirmed", doc.Data["status"])

	err = m.Update(ctx, "bookings", "missing", map[string]interface{}{"status": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	id, err := m.Add(ctx, "messages", map[string]interface{}{"participants": []string{"a", "b"}})
	require.NoError(t, err)

	doc, err := m.Find(ctx, "messages", id)
	require.NoError(t, err)
	doc.Data["participants"].([]interface{})[0] = "mutated"

	again, err := m.Find(ctx, "messages", id)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, again.Data["participants"])
}

func TestMemory_RunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	require.NoError(t, m.Set(ctx, "users", "u1", map[string]interface{}{"name": "Ana"}))

	boom := errors.New("boom")
	err := m.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.Update(ctx, "users", "u1", map[string]interface{}{"name": "Bea"}); err != nil {
			return err
		}
		if _, err := tx.Add(ctx, "bookings", map[string]interface{}{"customerName": "Bea"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	doc, err := m.Find(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", doc.Data["name"])
	all, err := m.All(ctx, "bookings")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemory_RunInTxKeepsOtherWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	require.NoError(t, m.Set(ctx, "users", "u1", map[string]interface{}{"name": "Ana"}))
	require.NoError(t, m.Set(ctx, "users", "u2", map[string]interface{}{"name": "Cy"}))

	var outside string
	err := m.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		require.NoError(t, tx.Update(ctx, "users", "u1", map[string]interface{}{"name": "Bea"}))
		require.NoError(t, tx.Remove(ctx, "users", "u2"))
		// committed on its own, not part of the transaction
		id, err := m.Add(ctx, "messages", map[string]interface{}{"message": "hi"})
		require.NoError(t, err)
		outside = id
		return errors.New("boom")
	})
	require.Error(t, err)

	doc, err := m.Find(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", doc.Data["name"])
	assert.Equal(t, int64(1), doc.Version)
	_, err = m.Find(ctx, "users", "u2")
	assert.NoError(t, err)
	_, err = m.Find(ctx, "messages", outside)
	assert.NoError(t, err)
}

func TestMemory_RunInTxSignalsAfterRollback(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	require.NoError(t, m.Set(ctx, "bookings", "b1", map[string]interface{}{"providerName": "Ravi"}))

	snapshots := make(chan []Document, 10)
	sub := Subscribe(ctx, m, Q("bookings"), func(docs []Document, err error) {
		assert.NoError(t, err)
		snapshots <- docs
	})
	defer sub.Close()
	receive(t, snapshots)

	err := m.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		require.NoError(t, tx.Update(ctx, "bookings", "b1", map[string]interface{}{"providerName": "Ravi Kumar"}))
		return errors.New("boom")
	})
	require.Error(t, err)

	docs := receive(t, snapshots)
	require.Len(t, docs, 1)
	assert.Equal(t, "Ravi", docs[0].Data["providerName"])
}

func TestMemory_RunInTxSignalsOnCommit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	changes, stop := m.Changes("users")
	defer stop()

	err := m.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		_, err := tx.Add(ctx, "users", map[string]interface{}{"name": "Ana"})
		require.NoError(t, err)
		select {
		case <-changes:
			t.Error("signal sent before commit")
		default:
		}
		return nil
	})
	require.NoError(t, err)

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no signal after commit")
	}
}

func TestMemory_OrderMissingFieldLast(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	for _, data := range []map[string]interface{}{{"name": "none"}, {"name": "b", "price": 2}, {"name": "a", "price": 1}} {
		_, err := m.Add(ctx, "providerServices", data)
		require.NoError(t, err)
	}

	names := func(docs []Document) []string {
		var out []string
		for _, d := range docs {
			out = append(out, d.Data["name"].(string))
		}
		return out
	}
	asc, err := m.Get(ctx, Q("providerServices").Order("price", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "none"}, names(asc))

	desc, err := m.Get(ctx, Q("providerServices").Order("price", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"none", "b", "a"}, names(desc))
}

func TestTracked_ReleasesFlag(t *testing.T) {
	ctx := context.Background()
	loading := &Loading{}
	s := Tracked(NewMemory(nil), loading)

	_, err := s.Find(ctx, "users", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, loading.Busy())

	var during int64
	err = s.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		during = loading.InFlight()
		_, err := tx.Add(ctx, "users", map[string]interface{}{"name": "x"})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), during)
	assert.Equal(t, int64(0), loading.InFlight())
}

func TestSubscribe_DeliversSnapshots(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	snapshots := make(chan []Document, 10)

	sub := Subscribe(ctx, m, Q("messages", Where("key", OpEq, "a|b")).Order("n", false), func(docs []Document, err error) {
		assert.NoError(t, err)
		snapshots <- docs
	})
	defer sub.Close()

	first := receive(t, snapshots)
	assert.Empty(t, first)

	_, err := m.Add(ctx, "messages", map[string]interface{}{"key": "a|b", "n": 1})
	require.NoError(t, err)
	assert.Len(t, waitFor(t, snapshots, 1), 1)

	_, err = m.Add(ctx, "messages", map[string]interface{}{"key": "a|b", "n": 2})
	require.NoError(t, err)
	docs := waitFor(t, snapshots, 2)
	assert.Equal(t, float64(1), docs[0].Data["n"])
	assert.Equal(t, float64(2), docs[1].Data["n"])
}

func TestSubscribe_CloseStopsDelivery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	snapshots := make(chan []Document, 10)

	sub := Subscribe(ctx, m, Q("messages"), func(docs []Document, err error) {
		snapshots <- docs
	})
	receive(t, snapshots)
	sub.Close()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop")
	}

	_, err := m.Add(ctx, "messages", map[string]interface{}{"n": 1})
	require.NoError(t, err)
	select {
	case <-snapshots:
		t.Fatal("snapshot delivered after Close")
	case <-time.After(50 * time.Millisecond):
	}
}

func receive(t *testing.T, ch <-chan []Document) []Document {
	t.Helper()
	select {
	case docs := <-ch:
		return docs
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
		return nil
	}
}

// waitFor drains snapshots until one of length n arrives. Signals coalesce, so
// intermediate snapshots may be skipped.
func waitFor(t *testing.T, ch <-chan []Document, n int) []Document {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case docs := <-ch:
			if len(docs) == n {
				return docs
			}
		case <-deadline:
			t.Fatalf("no snapshot of length %d received", n)
			return nil
		}
	}
}

func TestMemory_DocumentIDFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	a, err := m.Add(ctx, "users", map[string]interface{}{"name": "a"})
	require.NoError(t, err)
	_, err = m.Add(ctx, "users", map[string]interface{}{"name": "b"})
	require.NoError(t, err)
	c, err := m.Add(ctx, "users", map[string]interface{}{"name": "c"})
	require.NoError(t, err)

	docs, err := m.Get(ctx, Q("users", Where(DocumentID, OpIn, []string{a, c, "missing"})).Order("name", false))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, a, docs[0].ID)
	assert.Equal(t, c, docs[1].ID)

	_, err = m.Add(ctx, "users", map[string]interface{}{DocumentID: "x"})
	assert.ErrorIs(t, err, ErrInvalidField)
}
