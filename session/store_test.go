package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/homeservice-app/models"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	rs, mr := newRedisStore(t)
	id := Identity{UserID: "u1", Name: "Ravi", Email: "ravi@example.com", Role: models.RoleProvider}

	require.NoError(t, rs.Save(ctx, "tok", id, time.Hour))
	assert.True(t, mr.Exists("session:tok"))
	assert.Equal(t, time.Hour, mr.TTL("session:tok"))

	sess, err := rs.Load(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, Populated, sess.State())
	assert.Equal(t, "tok", sess.TokenID())
	got, ok := sess.Identity()
	require.True(t, ok)
	assert.Equal(t, id, got)

	require.NoError(t, rs.Delete(ctx, "tok"))
	_, err = rs.Load(ctx, "tok")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestRedisStore_Expires(t *testing.T) {
	ctx := context.Background()
	rs, mr := newRedisStore(t)
	require.NoError(t, rs.Save(ctx, "tok", Identity{UserID: "u1"}, time.Minute))

	mr.FastForward(2 * time.Minute)
	_, err := rs.Load(ctx, "tok")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	rs, mr := newRedisStore(t)
	require.NoError(t, mr.Set("session:tok", "not json"))

	_, err := rs.Load(ctx, "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownToken)
}

func TestRedisStore_Unreachable(t *testing.T) {
	ctx := context.Background()
	rs, mr := newRedisStore(t)
	mr.Close()

	_, err := rs.Load(ctx, "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownToken)
}
