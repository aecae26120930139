package graph

import (
	"context"
	"reflect"

	"github.com/aretw0/taskgraph/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// CompositeNode runs several sub-graphs in parallel, each on its own copy of the
// fragment, and merges what they produced.
type CompositeNode struct {
	id       string
	alias    string
	nested   []Node
	edges    edges
	parallel int
}

// NewCompositeNode creates a node running nested sub-graphs.
// parallel bounds how many sub-graphs run at once; zero or less means unbounded.
func NewCompositeNode(id, alias string, nested []Node, next map[string]Node, parallel int) *CompositeNode {
	return &CompositeNode{
		id:       id,
		alias:    alias,
		nested:   append([]Node(nil), nested...),
		edges:    copyEdges(next),
		parallel: parallel,
	}
}

func (n *CompositeNode) ID() string            { return n.id }
func (n *CompositeNode) Alias() string         { return n.alias }
func (n *CompositeNode) Kind() domain.NodeKind { return domain.NodeKindComposite }
func (n *CompositeNode) Transitions() []string { return n.edges.labels() }

// Nested returns the roots of the grouped sub-graphs.
func (n *CompositeNode) Nested() []Node { return append([]Node(nil), n.nested...) }

func (n *CompositeNode) Next(transition string) (Node, bool) {
	return n.edges.next(transition)
}

// Execute walks every nested sub-graph with the Runner found in ctx.
// Only payload entries a sub-graph added, changed or removed are merged, in
// sub-graph order. The last changed body wins.
// The default transition is taken only when every sub-graph succeeded.
func (n *CompositeNode) Execute(ctx context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error) {
	runner := RunnerFrom(ctx)

	type branch struct {
		fragment domain.Fragment
		status   domain.EventStatus
	}
	results := make([]branch, len(n.nested))

	g, gctx := errgroup.WithContext(ctx)
	if n.parallel > 0 {
		g.SetLimit(n.parallel)
	}
	for i, root := range n.nested {
		branchCtx := domain.FragmentContext{Fragment: fctx.Fragment.Clone(), Request: fctx.Request}
		g.Go(func() error {
			f, status := runner.Run(gctx, root, branchCtx)
			results[i] = branch{fragment: f, status: status}
			return nil
		})
	}
	_ = g.Wait()

	merged := fctx.Fragment.Clone()
	failed := false
	for _, b := range results {
		if b.status == domain.EventFailure {
			failed = true
			continue
		}
		if b.fragment.Body != fctx.Fragment.Body {
			merged.Body = b.fragment.Body
		}
		mergePayload(&merged, fctx.Fragment.Payload, b.fragment.Payload)
	}

	if ctx.Err() != nil {
		return domain.Failure(fctx.Fragment), ctx.Err()
	}
	if failed {
		return domain.Failure(merged), nil
	}
	return domain.Success(merged), nil
}

// mergePayload applies to merged the entries of branch that differ from base.
func mergePayload(merged *domain.Fragment, base, branch map[string]any) {
	for k, v := range branch {
		if old, ok := base[k]; ok && reflect.DeepEqual(old, v) {
			continue
		}
		if merged.Payload == nil {
			merged.Payload = make(map[string]any, len(branch))
		}
		merged.Payload[k] = v
	}
	for k := range base {
		if _, ok := branch[k]; !ok {
			delete(merged.Payload, k)
		}
	}
}
