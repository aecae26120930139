package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/taskgraph/pkg/actions/cache"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/aretw0/taskgraph/pkg/registry"
	backend "github.com/redis/go-redis/v9"
)

const (
	CacheFactoryName = "redis-cache"
	defaultPrefix    = "taskgraph:cache:"
)

// CacheFactory builds caching actions stored in Redis.
type CacheFactory struct {
	opts options
}

// NewCacheFactory creates the "redis-cache" action factory.
func NewCacheFactory(opts ...Option) *CacheFactory {
	f := &CacheFactory{}
	for _, opt := range opts {
		opt(&f.opts)
	}
	return f
}

func (f *CacheFactory) Name() string { return CacheFactoryName }

// Create accepts the cache configuration plus addr, password, db and prefix.
func (f *CacheFactory) Create(alias string, config map[string]any, rt ports.Runtime, doAction ports.Action) (ports.Action, error) {
	settings, err := cache.ParseConfig(alias, omit(config, "addr", "password", "db", "prefix"))
	if err != nil {
		return nil, err
	}
	client, err := f.opts.clientFor(config)
	if err != nil {
		return nil, err
	}
	prefix := defaultPrefix
	if p, ok := config["prefix"].(string); ok && p != "" {
		prefix = p
	}
	return cache.NewAction(alias, settings, NewCacheStore(client, prefix), doAction, rt.Log())
}

// CacheStore implements cache.Store with JSON values under prefixed keys.
type CacheStore struct {
	client backend.UniversalClient
	prefix string
}

// NewCacheStore creates a store using client.
func NewCacheStore(client backend.UniversalClient, prefix string) *CacheStore {
	return &CacheStore{client: client, prefix: prefix}
}

func (s *CacheStore) Get(ctx context.Context, key string) (any, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false, fmt.Errorf("decode cached value: %w", err)
	}
	return value, true, nil
}

func (s *CacheStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached value: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

var _ cache.Store = (*CacheStore)(nil)

func init() {
	registry.Register(registry.PluginFunc(func(c *registry.Catalog) {
		c.AddActionFactory(NewCacheFactory())
		c.AddConsumerFactory(NewConsumerFactory())
	}))
}
