package compiler

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/graph"
)

// DefaultMaxDepth bounds how deep a task graph may nest.
const DefaultMaxDepth = 256

// NodeFactoryResolver resolves node factory names.
type NodeFactoryResolver interface {
	Resolve(kind string) (graph.NodeFactory, error)
}

// Builder compiles task definitions into executable graphs.
// A task is compiled once and the result, or the error, is reused afterwards.
type Builder struct {
	tasks    domain.TaskDefinition
	nodes    NodeFactoryResolver
	logger   *slog.Logger
	maxDepth int

	mu       sync.Mutex
	compiled map[string]compiled
}

type compiled struct {
	task *graph.Task
	err  error
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(b *Builder) {
		b.maxDepth = depth
	}
}

// NewBuilder creates a builder for tasks.
func NewBuilder(tasks domain.TaskDefinition, nodes NodeFactoryResolver, opts ...Option) *Builder {
	b := &Builder{
		tasks:    tasks,
		nodes:    nodes,
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
		compiled: make(map[string]compiled),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the task graph for fragment.
// The boolean is false when the fragment names no task or names an undefined one.
func (b *Builder) Build(fragment domain.Fragment) (*graph.Task, bool, error) {
	name, ok := fragment.TaskName()
	if !ok {
		return nil, false, nil
	}
	if _, defined := b.tasks[name]; !defined {
		b.logger.Debug("fragment names an undefined task", "task", name, "fragment_id", fragment.ID)
		return nil, false, nil
	}
	task, err := b.Compile(name)
	if err != nil {
		return nil, false, err
	}
	return task, true, nil
}

// Compile returns the task graph named name.
func (b *Builder) Compile(name string) (*graph.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.compiled[name]; ok {
		return c.task, c.err
	}
	root, ok := b.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, name)
	}

	c := &compilation{
		task:      name,
		nodes:     b.nodes,
		metadata:  make(graph.Metadata),
		ancestors: make(map[uintptr]bool),
		maxDepth:  b.maxDepth,
	}
	node, err := c.Compile(root)
	var task *graph.Task
	if err == nil {
		task = &graph.Task{Name: name, Root: node, Metadata: c.metadata}
		b.logger.Debug("task compiled", "task", name, "nodes", len(c.metadata))
	}
	b.compiled[name] = compiled{task: task, err: err}
	return task, err
}

// Tasks lists the defined task names, sorted.
func (b *Builder) Tasks() []string {
	out := make([]string, 0, len(b.tasks))
	for name := range b.tasks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// compilation is the NodeProvider of one task build.
type compilation struct {
	task      string
	nodes     NodeFactoryResolver
	metadata  graph.Metadata
	ancestors map[uintptr]bool
	depth     int
	maxDepth  int
}

func (c *compilation) TaskName() string { return c.task }

func (c *compilation) Record(meta domain.NodeMetadata) {
	c.metadata[meta.NodeID] = meta
}

// Compile builds options post-order: transition targets first, then the node itself.
func (c *compilation) Compile(options domain.NodeOptions) (graph.Node, error) {
	c.depth++
	defer func() { c.depth-- }()
	if c.depth > c.maxDepth {
		return nil, &domain.GraphError{Task: c.task, Reason: fmt.Sprintf("graph is nested deeper than %d nodes", c.maxDepth)}
	}

	if options.Transitions != nil {
		key := reflect.ValueOf(options.Transitions).Pointer()
		if c.ancestors[key] {
			return nil, &domain.GraphError{Task: c.task, Reason: "transitions lead back to an ancestor node"}
		}
		c.ancestors[key] = true
		defer delete(c.ancestors, key)
	}

	factory, err := c.nodes.Resolve(options.Node.Factory)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", c.task, err)
	}

	labels := make([]string, 0, len(options.Transitions))
	for label := range options.Transitions {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	edges := make(map[string]graph.Node, len(labels))
	for _, label := range labels {
		if label == "" {
			return nil, &domain.GraphError{Task: c.task, Reason: "empty transition label"}
		}
		next, err := c.Compile(options.Transitions[label])
		if err != nil {
			return nil, err
		}
		edges[label] = next
	}

	node, err := factory.Build(options, edges, c)
	if err != nil {
		return nil, err
	}
	return node, nil
}
