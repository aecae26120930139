package graph

import (
	"context"

	"github.com/aretw0/taskgraph/pkg/domain"
)

// Runner walks a sub-graph from root until no outgoing edge matches.
type Runner interface {
	Run(ctx context.Context, root Node, fctx domain.FragmentContext) (domain.Fragment, domain.EventStatus)
}

type runnerKey struct{}

// WithRunner returns a context carrying r, used by composite nodes to walk their sub-graphs.
func WithRunner(ctx context.Context, r Runner) context.Context {
	return context.WithValue(ctx, runnerKey{}, r)
}

// RunnerFrom returns the Runner stored in ctx.
// Without one, sub-graphs are walked by a plain runner that keeps no trace.
func RunnerFrom(ctx context.Context) Runner {
	if r, ok := ctx.Value(runnerKey{}).(Runner); ok && r != nil {
		return r
	}
	return plainRunner{}
}

type plainRunner struct{}

func (plainRunner) Run(ctx context.Context, root Node, fctx domain.FragmentContext) (domain.Fragment, domain.EventStatus) {
	node := root
	for node != nil {
		if ctx.Err() != nil {
			return fctx.Fragment, domain.EventFailure
		}
		result, err := node.Execute(ctx, fctx)
		transition := result.Transition
		if err != nil {
			transition = domain.ErrorTransition
		} else {
			fctx.Fragment = result.Fragment
		}
		next, ok := node.Next(transition)
		if !ok {
			if transition == domain.ErrorTransition {
				return fctx.Fragment, domain.EventFailure
			}
			return fctx.Fragment, domain.EventSuccess
		}
		node = next
	}
	return fctx.Fragment, domain.EventSuccess
}
