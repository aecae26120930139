package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/graph"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/taskgraph/internal/runtime"

// Engine walks compiled task graphs.
// It holds no per-walk state and is safe for concurrent use.
type Engine struct {
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	tracer   trace.Tracer
	timeout  time.Duration
	logLevel domain.LogLevel
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithTracer sets the tracer used for walk and node spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithWalkTimeout bounds every walk. Zero disables the bound.
func WithWalkTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithLogLevel controls which trace entries keep their node log.
func WithLogLevel(level domain.LogLevel) Option {
	return func(e *Engine) {
		e.logLevel = level
	}
}

// WithClock overrides time.Now, for deterministic traces in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a walker.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		logLevel: domain.LogLevelInfo,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Walk evaluates task for fctx and returns the resulting event.
// A nil task, or one without a root, leaves the fragment unprocessed.
// Node failures are reported in the event, never as an error.
func (e *Engine) Walk(ctx context.Context, task *graph.Task, fctx domain.FragmentContext) domain.FragmentEvent {
	started := e.now()
	fctx.Fragment = fctx.Fragment.Clone()

	if task == nil || task.Root == nil {
		event := domain.FragmentEvent{Fragment: fctx.Fragment, Status: domain.EventUnprocessed, Log: []domain.TraceEntry{}}
		if task != nil {
			event.Task = task.Name
		}
		event.Duration = e.now().Sub(started)
		e.done(ctx, &event, StateCompleted)
		return event
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ctx, span := e.tracer.Start(ctx, "taskgraph.walk", trace.WithAttributes(
		attribute.String("taskgraph.task", task.Name),
		attribute.String("taskgraph.fragment_id", fctx.Fragment.ID),
	))
	defer span.End()

	w := newWalk(e, task.Name)
	w.setState(StateRunning)
	fragment, status := w.Run(graph.WithRunner(ctx, w), task.Root, fctx)
	if status == domain.EventFailure {
		w.setState(StateFailed)
	} else {
		w.setState(StateCompleted)
	}

	event := domain.FragmentEvent{
		Task:     task.Name,
		Fragment: fragment,
		Status:   status,
		Log:      w.Entries(),
		Duration: e.now().Sub(started),
	}
	span.SetAttributes(attribute.String("taskgraph.status", string(status)))
	if status == domain.EventFailure {
		span.SetStatus(codes.Error, "walk failed")
	}
	e.done(ctx, &event, w.State())
	return event
}

func (e *Engine) done(ctx context.Context, event *domain.FragmentEvent, state WalkState) {
	e.logger.Debug("walk finished",
		"state", state,
		"task", event.Task,
		"fragment_id", event.Fragment.ID,
		"status", event.Status,
		"nodes", len(event.Log),
		"duration", event.Duration,
	)
	if e.hooks.OnWalkDone != nil {
		e.hooks.OnWalkDone(ctx, event)
	}
}
