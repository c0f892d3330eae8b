// Package store persists conversations, their state snapshots, the append-only
// audit tables and live-session quotations in PostgreSQL. State snapshots are
// read through a Redis cache when one is configured.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"funnel-workers/internal/common/database"
	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/metrics"
)

const snapshotKeyPrefix = "conversation_state:"

type Options struct {
	// Cache is optional; nil disables snapshot caching.
	Cache    *database.RedisClient
	CacheTTL time.Duration
	Now      func() time.Time
}

type Store struct {
	pg       *database.PostgresClient
	cache    *database.RedisClient
	cacheTTL time.Duration
	logger   logger.Logger
	now      func() time.Time
}

func New(pg *database.PostgresClient, log logger.Logger, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{
		pg:       pg,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "store"}),
		now:      opts.Now,
	}
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	defer s.observe("migrate")()
	if err := s.pg.EnsureSchema(ctx, schema); err != nil {
		return appErrors.NewDatabaseConnectionFailedError(err)
	}
	return nil
}

// Ping checks the database and, when configured, the cache.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pg.Ping(ctx); err != nil {
		return appErrors.NewDatabaseConnectionFailedError(err)
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return appErrors.NewDatabaseConnectionFailedError(err)
		}
	}
	return nil
}

// GenerateConversationID returns "conv_" followed by 16 hex characters.
func GenerateConversationID() string {
	return "conv_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (s *Store) observe(operation string) func() {
	start := time.Now()
	return func() {
		metrics.StoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func queryError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return appErrors.NewQueryTimeoutError(operation)
	}
	return appErrors.NewQueryExecutionFailedError(operation, err)
}

// execOne runs an UPDATE and returns notFound when no row matched.
func (s *Store) execOne(ctx context.Context, operation string, notFound error, query string, args ...interface{}) error {
	defer s.observe(operation)()

	res, err := s.pg.Exec(ctx, query, args...)
	if err != nil {
		return queryError(operation, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return queryError(operation, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// nullableJSON encodes v, or returns nil so COALESCE keeps the stored value.
func nullableJSON(v interface{}, isNil bool) (interface{}, error) {
	if isNil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
