package taskgraph

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/taskgraph/internal/compiler"
	"github.com/aretw0/taskgraph/internal/logging"
	"github.com/aretw0/taskgraph/internal/runtime"
	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/graph"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/aretw0/taskgraph/pkg/registry"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	// Built-in plugins.
	_ "github.com/aretw0/taskgraph/pkg/actions/cache"
	_ "github.com/aretw0/taskgraph/pkg/actions/http"
	_ "github.com/aretw0/taskgraph/pkg/actions/inline"
	_ "github.com/aretw0/taskgraph/pkg/adapters/memory"
	_ "github.com/aretw0/taskgraph/pkg/adapters/process"
	_ "github.com/aretw0/taskgraph/pkg/adapters/redis"
	_ "github.com/aretw0/taskgraph/pkg/consumer"
	_ "github.com/aretw0/taskgraph/pkg/nodes"
)

// DefaultMaxParallel bounds how many fragments Execute walks at once.
const DefaultMaxParallel = 16

// Engine is the high-level entry point of the library.
// It compiles tasks on demand, walks fragments and notifies consumers.
// Safe for concurrent use once built.
type Engine struct {
	options     domain.Options
	catalog     *registry.Catalog
	actions     *registry.Actions
	builder     *compiler.Builder
	walker      *runtime.Engine
	consumers   []ports.EventsConsumer
	extra       []ports.EventsConsumer
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	httpClient  *http.Client
	tracer      trace.Tracer
	walkTimeout time.Duration
	maxParallel int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog replaces the globally registered plugins.
func WithCatalog(c *registry.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithLogger sets the structured logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithWalkTimeout bounds every walk.
func WithWalkTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.walkTimeout = d
	}
}

// WithConsumers adds consumers next to the configured ones.
func WithConsumers(consumers ...ports.EventsConsumer) Option {
	return func(e *Engine) {
		e.extra = append(e.extra, consumers...)
	}
}

// WithHTTPClient sets the client shared by HTTP-based actions.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = client
	}
}

// WithMaxParallel bounds how many fragments Execute walks at once.
func WithMaxParallel(n int) Option {
	return func(e *Engine) {
		e.maxParallel = n
	}
}

// WithTracer sets the OpenTelemetry tracer for walk and node spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// New builds an engine for options.
// Actions and consumers are created eagerly; tasks compile on first use.
// Only consumer errors fail New, action errors surface when a task uses the action.
func New(options domain.Options, opts ...Option) (*Engine, error) {
	e := &Engine{options: options, maxParallel: DefaultMaxParallel}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.catalog == nil {
		e.catalog = registry.Discover()
	}

	rt := ports.Runtime{Logger: e.logger, HTTPClient: e.httpClient}
	e.actions = registry.NewActions(e.catalog, options.Actions, rt)
	nodes := registry.NewNodes(e.catalog, registry.NodeEnv{Actions: e.actions, Logger: e.logger})
	e.builder = compiler.NewBuilder(options.Tasks, nodes, compiler.WithLogger(e.logger))

	consumers, err := registry.NewConsumers(e.catalog, options.Consumers, rt)
	if err != nil {
		return nil, err
	}
	e.consumers = append(consumers, e.extra...)

	level := options.LogLevel
	if level == "" {
		level = domain.LogLevelInfo
	}
	walkerOpts := []runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithWalkTimeout(e.walkTimeout),
		runtime.WithLogLevel(level),
	}
	if e.tracer != nil {
		walkerOpts = append(walkerOpts, runtime.WithTracer(e.tracer))
	}
	e.walker = runtime.NewEngine(walkerOpts...)

	e.logger.Debug("engine ready",
		"tasks", len(options.Tasks),
		"actions", len(options.Actions),
		"consumers", len(e.consumers),
	)
	return e, nil
}

// Process walks the task fragment declares and notifies the consumers.
// A fragment without a matching task comes back unprocessed and unchanged.
// An error means the task could not be compiled; nothing is delivered then.
func (e *Engine) Process(ctx context.Context, request domain.ClientRequest, fragment domain.Fragment) (domain.FragmentEvent, error) {
	task, _, err := e.builder.Build(fragment)
	if err != nil {
		name, _ := fragment.TaskName()
		return domain.FragmentEvent{Task: name, Fragment: fragment, Status: domain.EventUnprocessed}, err
	}

	event := e.walker.Walk(ctx, task, domain.FragmentContext{Fragment: fragment, Request: request})
	for _, c := range e.consumers {
		c.Accept(ctx, request, event)
	}
	return event, nil
}

// Execute processes fragments concurrently and returns their events in input order.
// Compilation errors do not stop the other fragments; the first one is returned.
func (e *Engine) Execute(ctx context.Context, request domain.ClientRequest, fragments []domain.Fragment) ([]domain.FragmentEvent, error) {
	events := make([]domain.FragmentEvent, len(fragments))
	var g errgroup.Group
	if e.maxParallel > 0 {
		g.SetLimit(e.maxParallel)
	}
	for i, fragment := range fragments {
		g.Go(func() error {
			event, err := e.Process(ctx, request, fragment)
			events[i] = event
			if err != nil {
				return fmt.Errorf("fragment %q: %w", fragment.ID, err)
			}
			return nil
		})
	}
	return events, g.Wait()
}

// Compile returns the task graph fragment declares.
// The boolean is false when no task applies.
func (e *Engine) Compile(fragment domain.Fragment) (*graph.Task, bool, error) {
	return e.builder.Build(fragment)
}

// Task compiles the task named name.
func (e *Engine) Task(name string) (*graph.Task, error) {
	return e.builder.Compile(name)
}

// Tasks lists the configured task names, sorted.
func (e *Engine) Tasks() []string {
	return e.builder.Tasks()
}

// Inspect compiles the named task and returns its debug export.
func (e *Engine) Inspect(name string) (*graph.Export, error) {
	task, err := e.builder.Compile(name)
	if err != nil {
		return nil, err
	}
	return task.Export()
}

// Consumers returns every consumer receiving events, configured ones first.
func (e *Engine) Consumers() []ports.EventsConsumer {
	return append([]ports.EventsConsumer(nil), e.consumers...)
}

// Options returns the configuration the engine was built with.
func (e *Engine) Options() domain.Options {
	return e.options
}

// Actions exposes the operation registry, for validation and tooling.
func (e *Engine) Actions() *registry.Actions {
	return e.actions
}

// Catalog returns the plugin catalog in use.
func (e *Engine) Catalog() *registry.Catalog {
	return e.catalog
}
