package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

var ErrUnknownToken = errors.New("session not found or expired")

// Store keeps signed-in identities by token id.
type Store interface {
	Save(ctx context.Context, tokenID string, id Identity, ttl time.Duration) error
	Load(ctx context.Context, tokenID string) (*Session, error)
	Delete(ctx context.Context, tokenID string) error
}

type memEntry struct {
	identity Identity
	expires  time.Time
}

// MemoryStore keeps sessions in process. They are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, tokenID string, id Identity, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[tokenID] = memEntry{identity: id, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, tokenID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[tokenID]
	if !ok {
		return nil, ErrUnknownToken
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, tokenID)
		return nil, ErrUnknownToken
	}
	s := New()
	s.Populate(e.identity, tokenID)
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, tokenID)
	return nil
}

// RedisStore keeps sessions in Redis so they survive restarts and are shared
// between instances.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Save(ctx context.Context, tokenID string, id Identity, ttl time.Duration) error {
	payload, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.client.Set(ctx, keyPrefix+tokenID, payload, ttl).Err()
}

func (r *RedisStore) Load(ctx context.Context, tokenID string) (*Session, error) {
	data, err := r.client.Get(ctx, keyPrefix+tokenID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnknownToken
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	s := New()
	s.Populate(id, tokenID)
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, tokenID string) error {
	return r.client.Del(ctx, keyPrefix+tokenID).Err()
}
