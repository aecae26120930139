package registry

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/taskgraph/pkg/graph"
	"github.com/aretw0/taskgraph/pkg/ports"
)

// Plugin contributes factories to a Catalog.
type Plugin interface {
	Register(c *Catalog)
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc func(c *Catalog)

// Register calls f(c).
func (f PluginFunc) Register(c *Catalog) { f(c) }

// NodeEnv is what node factory constructors receive.
type NodeEnv struct {
	Actions ActionResolver
	Logger  *slog.Logger
}

// NodeFactoryConstructor builds a node factory once the actions are known.
type NodeFactoryConstructor func(env NodeEnv) graph.NodeFactory

// Catalog holds every known factory by name.
// Registering a name twice replaces the earlier factory.
type Catalog struct {
	mu        sync.RWMutex
	actions   map[string]ports.ActionFactory
	nodes     map[string]NodeFactoryConstructor
	consumers map[string]ports.ConsumerFactory
}

// NewCatalog creates a catalog populated by the given plugins.
func NewCatalog(plugins ...Plugin) *Catalog {
	c := &Catalog{
		actions:   make(map[string]ports.ActionFactory),
		nodes:     make(map[string]NodeFactoryConstructor),
		consumers: make(map[string]ports.ConsumerFactory),
	}
	for _, p := range plugins {
		p.Register(c)
	}
	return c
}

func (c *Catalog) AddActionFactory(f ports.ActionFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions[f.Name()] = f
}

func (c *Catalog) AddNodeFactory(name string, ctor NodeFactoryConstructor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[name] = ctor
}

func (c *Catalog) AddConsumerFactory(f ports.ConsumerFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers[f.Name()] = f
}

func (c *Catalog) ActionFactory(name string) (ports.ActionFactory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.actions[name]
	return f, ok
}

func (c *Catalog) ConsumerFactory(name string) (ports.ConsumerFactory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.consumers[name]
	return f, ok
}

func (c *Catalog) nodeConstructors() map[string]NodeFactoryConstructor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]NodeFactoryConstructor, len(c.nodes))
	for k, v := range c.nodes {
		out[k] = v
	}
	return out
}

// Names lists the registered factory names per kind, sorted.
func (c *Catalog) Names() (actions, nodes, consumers []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.actions), sortedKeys(c.nodes), sortedKeys(c.consumers)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var (
	globalMu sync.Mutex
	global   []Plugin
)

// Register makes a plugin discoverable process-wide.
func Register(p Plugin) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = append(global, p)
}

// Discover returns a catalog holding every plugin registered with Register,
// followed by the extra plugins given.
func Discover(extra ...Plugin) *Catalog {
	globalMu.Lock()
	plugins := append(append([]Plugin(nil), global...), extra...)
	globalMu.Unlock()
	return NewCatalog(plugins...)
}
