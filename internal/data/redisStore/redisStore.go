package redisStore

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

var (
	registry = struct {
		sync.RWMutex
		byDB map[int]*Store
	}{byDB: make(map[int]*Store)}
	closer sync.Once
	logger = logger_i.NewLogger("RedisStore")
)

// Store is one redis logical database. Jobs, chats and caches each get their own DB
// so a FLUSHDB on one never touches the others.
type Store struct {
	client *redis.Client
	db     int
}

type Options struct {
	Addr     string
	Password string
	// PoolSize of zero keeps the go-redis default.
	PoolSize int
}

// GetRedisStore returns the shared store for a redis logical DB, dialing it on first
// use. It returns nil when redis is unreachable so callers can fall back.
func GetRedisStore(ctx context.Context, opts Options, db int) *Store {
	registry.RLock()
	s, ok := registry.byDB[db]
	registry.RUnlock()
	if ok {
		return s
	}

	registry.Lock()
	defer registry.Unlock()
	if s, ok = registry.byDB[db]; ok {
		return s
	}

	s = dial(ctx, opts, db)
	if s == nil {
		return nil
	}
	registry.byDB[db] = s
	closer.Do(func() { go closeOnDone(ctx) })
	return s
}

func dial(ctx context.Context, opts Options, db int) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:                  opts.Addr,
		Password:              opts.Password,
		DB:                    db,
		PoolSize:              opts.PoolSize,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("Redis is offline", "addr", opts.Addr, "db", db, "error", err)
		_ = client.Close()
		return nil
	}

	logger.Info("Redis store ready", "addr", opts.Addr, "db", db)
	return &Store{client: client, db: db}
}

// closeOnDone closes every dialed client once the service context is cancelled.
func closeOnDone(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Redis Stores")
	registry.Lock()
	defer registry.Unlock()
	for db, s := range registry.byDB {
		if err := s.client.Close(); err != nil {
			logger.Error("Error closing redis client", "db", db, "error", err)
		}
		delete(registry.byDB, db)
	}
	logger.Info("Redis Stores closed")
}

// NewTestStore wraps an existing client, e.g. one pointed at miniredis.
func NewTestStore(client *redis.Client) *Store {
	return &Store{client: client}
}
