package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/config"
	"github.com/Additional-Code/printcore/internal/database"
)

// Store is the injected persistent key-value capability over string keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// ErrNotFound indicates the key is absent from the store.
var ErrNotFound = errors.New("kvstore: key not found")

// Module provides the configured store to the Fx graph.
var Module = fx.Provide(NewStore)

// Params collects the store dependencies.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Logger    *zap.Logger
	Conns     *database.Connections
}

// NewStore initialises the configured store (memory, redis or sql) behind the key prefix.
func NewStore(p Params) (Store, error) {
	var (
		store Store
		err   error
	)
	switch p.Config.Storage.Driver {
	case "memory":
		p.Logger.Warn("print state kept in memory; it will not survive a restart")
		store = NewMemory()
	case "redis":
		store, err = newRedisStore(p.Lifecycle, p.Config.Storage.Redis, p.Logger)
	case "sql":
		if p.Conns == nil || p.Conns.DB == nil {
			return nil, errors.New("sql storage requires a database connection")
		}
		store = NewSQL(p.Conns.DB)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", p.Config.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}
	return WithPrefix(store, p.Config.Storage.KeyPrefix), nil
}

// Memory is an in-process store, used for local runs and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key string, value string) error {
	if key == "" {
		return errors.New("kvstore: key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type prefixed struct {
	next   Store
	prefix string
}

// WithPrefix namespaces every key of next with prefix.
func WithPrefix(next Store, prefix string) Store {
	if prefix == "" {
		return next
	}
	return prefixed{next: next, prefix: prefix}
}

func (p prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.next.Get(ctx, p.prefix+key)
}

func (p prefixed) Set(ctx context.Context, key string, value string) error {
	return p.next.Set(ctx, p.prefix+key, value)
}

func (p prefixed) Delete(ctx context.Context, key string) error {
	return p.next.Delete(ctx, p.prefix+key)
}

type redisStore struct {
	client *goredis.Client
}

func newRedisStore(lc fx.Lifecycle, cfg config.Redis, logger *zap.Logger) (Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}
			logger.Info("redis storage connected", zap.String("addr", cfg.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("closing redis storage")
			return client.Close()
		},
	})

	return NewRedis(client), nil
}

// NewRedis wraps an existing redis client. Keys never expire.
func NewRedis(client *goredis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrNotFound
	}
	res, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return res, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value string) error {
	if key == "" {
		return errors.New("kvstore: key is required")
	}
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}
