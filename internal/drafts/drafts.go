// Package drafts keeps unsaved board arrangements so a reload does not lose them.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meur/residency/internal/models"
)

// Draft is the ranked order of a board that has not been submitted yet
type Draft struct {
	Ranked  []int64   `json:"ranked"`
	Filter  string    `json:"filter,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// Store persists drafts keyed by ranking kind and owner.
// Load returns (nil, nil) when there is no draft.
type Store interface {
	Load(ctx context.Context, kind models.RankingKind, ownerID int64) (*Draft, error)
	Save(ctx context.Context, kind models.RankingKind, ownerID int64, d Draft) error
	Delete(ctx context.Context, kind models.RankingKind, ownerID int64) error
}

func key(kind models.RankingKind, ownerID int64) string {
	return fmt.Sprintf("residency:draft:%s:%d", kind, ownerID)
}

// MemoryStore keeps drafts in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]Draft
}

// NewMemoryStore creates an empty in-memory draft store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]Draft)}
}

func (m *MemoryStore) Load(_ context.Context, kind models.RankingKind, ownerID int64) (*Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[key(kind, ownerID)]
	if !ok {
		return nil, nil
	}
	d.Ranked = slices.Clone(d.Ranked)
	return &d, nil
}

func (m *MemoryStore) Save(_ context.Context, kind models.RankingKind, ownerID int64, d Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Ranked = slices.Clone(d.Ranked)
	m.drafts[key(kind, ownerID)] = d
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, kind models.RankingKind, ownerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, key(kind, ownerID))
	return nil
}

// RedisStore keeps drafts in redis so they survive restarts and are shared between replicas
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a redis-backed draft store. Drafts expire after ttl; zero keeps them forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Connect parses a redis URL and verifies the server answers PING
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *RedisStore) Load(ctx context.Context, kind models.RankingKind, ownerID int64) (*Draft, error) {
	raw, err := r.client.Get(ctx, key(kind, ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

func (r *RedisStore) Save(ctx context.Context, kind models.RankingKind, ownerID int64, d Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key(kind, ownerID), raw, r.ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, kind models.RankingKind, ownerID int64) error {
	return r.client.Del(ctx, key(kind, ownerID)).Err()
}

// HealthCheck pings redis
func (r *RedisStore) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
