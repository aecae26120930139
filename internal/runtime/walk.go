package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/graph"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WalkState is the state of a walk.
type WalkState string

const (
	StatePending   WalkState = "pending"
	StateRunning   WalkState = "running"
	StateCompleted WalkState = "completed"
	StateFailed    WalkState = "failed"
)

// walk is the graph.Runner of a single Walk call.
// Nested sub-graphs of composite nodes share it, so their entries land in the same trace.
type walk struct {
	engine *Engine
	task   string

	mu      sync.Mutex
	state   WalkState
	entries []domain.TraceEntry
}

func newWalk(e *Engine, task string) *walk {
	return &walk{engine: e, task: task, state: StatePending}
}

// Run follows transitions from root until a node has no edge for the label it emitted.
func (w *walk) Run(ctx context.Context, root graph.Node, fctx domain.FragmentContext) (domain.Fragment, domain.EventStatus) {
	node := root
	for {
		result, entry := w.step(ctx, node, fctx)
		w.record(entry)

		if entry.Status == domain.NodeStatusTimeout {
			return fctx.Fragment, domain.EventFailure
		}
		if entry.Error == "" {
			fctx.Fragment = result.Fragment
		}

		next, ok := node.Next(entry.Transition)
		if !ok {
			if entry.Transition == domain.ErrorTransition {
				return fctx.Fragment, domain.EventFailure
			}
			return fctx.Fragment, domain.EventSuccess
		}
		node = next
	}
}

type outcome struct {
	result domain.FragmentResult
	err    error
}

func (w *walk) step(ctx context.Context, node graph.Node, fctx domain.FragmentContext) (domain.FragmentResult, domain.TraceEntry) {
	e := w.engine
	entry := domain.TraceEntry{
		Task:    w.task,
		NodeID:  node.ID(),
		Alias:   node.Alias(),
		Started: e.now(),
	}
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			Timestamp: entry.Started,
			Task:      w.task,
			NodeID:    entry.NodeID,
			Alias:     entry.Alias,
			Kind:      node.Kind(),
		})
	}

	ctx, span := e.tracer.Start(ctx, "taskgraph.node", trace.WithAttributes(
		attribute.String("taskgraph.task", w.task),
		attribute.String("taskgraph.node_id", entry.NodeID),
		attribute.String("taskgraph.alias", entry.Alias),
		attribute.String("taskgraph.kind", string(node.Kind())),
	))
	defer span.End()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("node %q panicked: %v", entry.Alias, r)}
			}
		}()
		res, err := node.Execute(ctx, fctx)
		done <- outcome{result: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		entry.Status = domain.NodeStatusTimeout
		entry.Transition = domain.ErrorTransition
		entry.Error = fmt.Errorf("%w: %v", domain.ErrWalkTimeout, ctx.Err()).Error()
		entry.Duration = e.now().Sub(entry.Started)
		span.SetStatus(codes.Error, entry.Error)
		w.leave(ctx, &entry)
		return domain.Failure(fctx.Fragment), entry
	}

	result := out.result
	if out.err != nil {
		result = domain.Failure(fctx.Fragment)
		entry.Error = out.err.Error()
		span.RecordError(out.err)
	}
	if result.Transition == "" {
		result.Transition = domain.DefaultTransition
	}
	entry.Transition = result.Transition
	entry.Status = domain.NodeStatusSuccess
	if result.Transition == domain.ErrorTransition {
		entry.Status = domain.NodeStatusError
		span.SetStatus(codes.Error, "error transition")
	}
	if e.logLevel.Keep(entry.Status) && len(out.result.NodeLog) > 0 {
		entry.NodeLog = out.result.NodeLog
	}
	entry.Duration = e.now().Sub(entry.Started)
	span.SetAttributes(attribute.String("taskgraph.transition", entry.Transition))

	w.leave(ctx, &entry)
	return result, entry
}

func (w *walk) leave(ctx context.Context, entry *domain.TraceEntry) {
	w.engine.logger.Debug("node finished",
		"task", entry.Task,
		"alias", entry.Alias,
		"node_id", entry.NodeID,
		"status", entry.Status,
		"transition", entry.Transition,
		"duration", entry.Duration,
	)
	if w.engine.hooks.OnNodeLeave != nil {
		w.engine.hooks.OnNodeLeave(ctx, entry)
	}
}

func (w *walk) record(entry domain.TraceEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entry)
}

// Entries returns a copy of the trace recorded so far.
func (w *walk) Entries() []domain.TraceEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.TraceEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

func (w *walk) setState(s WalkState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s
}

// State returns the current state of the walk.
func (w *walk) State() WalkState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}
