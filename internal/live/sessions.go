package live

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"funnel-workers/internal/common/config"
	"funnel-workers/internal/common/database"
	"funnel-workers/internal/models"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"

	defaultSessionTTL  = 2 * time.Hour
	defaultMaxSessions = 10000
	defaultKeyPrefix   = "live:session:"
)

// SessionStore holds live sessions between turns. Get returns nil, nil on a miss.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.LiveSession, error)
	Put(ctx context.Context, s *models.LiveSession) error
	Delete(ctx context.Context, id string) error
}

// NewSessionStore picks the backend named in cfg. The redis backend needs rdb.
func NewSessionStore(cfg config.SessionConfig, rdb *database.RedisClient) (SessionStore, error) {
	ttl := time.Duration(cfg.TTL) * time.Second
	switch cfg.Backend {
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("session backend %q needs a redis client", cfg.Backend)
		}
		return NewRedisSessionStore(rdb, cfg.KeyPrefix, ttl), nil
	case BackendMemory, "":
		return NewMemorySessionStore(cfg.MaxEntries, ttl), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// RedisSessionStore keeps sessions as JSON with a sliding TTL.
type RedisSessionStore struct {
	rdb    *database.RedisClient
	prefix string
	ttl    time.Duration
}

func NewRedisSessionStore(rdb *database.RedisClient, prefix string, ttl time.Duration) *RedisSessionStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSessionStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisSessionStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*models.LiveSession, error) {
	var s models.LiveSession
	ok, err := r.rdb.GetJSON(ctx, r.key(id), &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (r *RedisSessionStore) Put(ctx context.Context, s *models.LiveSession) error {
	return r.rdb.SetJSON(ctx, r.key(s.SessionID), s, r.ttl)
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, r.key(id))
}

// MemorySessionStore is a bounded in-process store; the least recently used
// session is dropped when full and idle sessions expire after the TTL.
type MemorySessionStore struct {
	cache *expirable.LRU[string, models.LiveSession]
}

func NewMemorySessionStore(maxEntries int, ttl time.Duration) *MemorySessionStore {
	if maxEntries <= 0 {
		maxEntries = defaultMaxSessions
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &MemorySessionStore{cache: expirable.NewLRU[string, models.LiveSession](maxEntries, nil, ttl)}
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*models.LiveSession, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, nil
	}
	out := cloneSession(s)
	return &out, nil
}

func (m *MemorySessionStore) Put(_ context.Context, s *models.LiveSession) error {
	m.cache.Add(s.SessionID, cloneSession(*s))
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.cache.Remove(id)
	return nil
}

func (m *MemorySessionStore) Len() int {
	return m.cache.Len()
}

// cloneSession detaches the slot map and history so callers never share them with the cache.
func cloneSession(s models.LiveSession) models.LiveSession {
	out := s
	out.State = s.State.Clone()
	out.History = append([]models.HistoryEntry(nil), s.History...)
	return out
}
