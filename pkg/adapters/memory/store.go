// Package memory provides the "memory" fragment events consumer, which keeps
// the most recent events in process for inspection.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/aretw0/taskgraph/pkg/registry"
	"github.com/mitchellh/mapstructure"
)

const (
	FactoryName     = "memory"
	DefaultCapacity = 100
)

// Store is a fixed-size ring of recent events.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	events   []domain.FragmentEvent
	next     int
	full     bool
	accepted int
}

// NewStore creates a store keeping the last capacity events.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{events: make([]domain.FragmentEvent, capacity)}
}

// Accept implements ports.EventsConsumer.
func (s *Store) Accept(_ context.Context, _ domain.ClientRequest, event domain.FragmentEvent) {
	event.Fragment = event.Fragment.Clone()
	event.Log = append([]domain.TraceEntry(nil), event.Log...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[s.next] = event
	s.next = (s.next + 1) % len(s.events)
	if s.next == 0 {
		s.full = true
	}
	s.accepted++
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(limit int) []domain.FragmentEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.next
	if s.full {
		size = len(s.events)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]domain.FragmentEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.events)) % len(s.events)
		out = append(out, s.events[idx])
	}
	return out
}

// Accepted returns how many events were ever accepted.
func (s *Store) Accepted() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accepted
}

// Factory builds memory stores from {capacity}.
type Factory struct{}

func (Factory) Name() string { return FactoryName }

func (Factory) Create(config map[string]any, _ ports.Runtime) (ports.EventsConsumer, error) {
	var cfg struct {
		Capacity int `mapstructure:"capacity"`
	}
	if err := mapstructure.WeakDecode(config, &cfg); err != nil {
		return nil, err
	}
	return NewStore(cfg.Capacity), nil
}

var (
	_ ports.EventsConsumer = (*Store)(nil)
	_ ports.EventLister    = (*Store)(nil)
)

func init() {
	registry.Register(registry.PluginFunc(func(c *registry.Catalog) {
		c.AddConsumerFactory(Factory{})
	}))
}
