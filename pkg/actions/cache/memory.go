package cache

import (
	"context"
	"time"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/aretw0/taskgraph/pkg/registry"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const MemoryFactoryName = "in-memory-cache"

// Plugin registers the in-memory caching action factory.
var Plugin = registry.PluginFunc(func(c *registry.Catalog) {
	c.AddActionFactory(MemoryFactory{})
})

func init() {
	registry.Register(Plugin)
}

// MemoryFactory builds caching actions backed by a per-alias in-process LRU.
type MemoryFactory struct{}

func (MemoryFactory) Name() string { return MemoryFactoryName }

func (MemoryFactory) Create(alias string, config map[string]any, rt ports.Runtime, doAction ports.Action) (ports.Action, error) {
	s, err := ParseConfig(alias, config)
	if err != nil {
		return nil, err
	}
	return NewAction(alias, s, NewMemoryStore(s.MaximumSize, s.TTL), doAction, rt.Log())
}

// MemoryStore is a size-bounded LRU whose entries expire after a fixed TTL.
type MemoryStore struct {
	lru *expirable.LRU[string, any]
}

// NewMemoryStore creates a store holding at most capacity entries for ttl each.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMaximumSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{lru: expirable.NewLRU[string, any](capacity, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (any, bool, error) {
	v, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return domain.CloneValue(v), true, nil
}

// Set stores value for the TTL the store was created with; ttl is ignored.
func (s *MemoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.lru.Add(key, value)
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	return s.lru.Len()
}
