package ports

import (
	"context"

	"github.com/aretw0/taskgraph/pkg/domain"
)

// Action is the operation executed by a single node.
// A returned error is turned into the error transition by the node that runs it.
type Action interface {
	Apply(ctx context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error)
}

// ActionFunc adapts an ordinary function to the Action interface.
type ActionFunc func(ctx context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error)

// Apply calls f(ctx, fctx).
func (f ActionFunc) Apply(ctx context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error) {
	return f(ctx, fctx)
}

// ActionFactory builds actions of one kind.
// doAction is the already built action named by the alias' doAction entry, or nil.
type ActionFactory interface {
	Name() string
	Create(alias string, config map[string]any, rt Runtime, doAction Action) (Action, error)
}
