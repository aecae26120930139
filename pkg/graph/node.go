package graph

import (
	"context"
	"sort"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
)

// Node is one vertex of a compiled task graph.
// Nodes are immutable once built and may be shared by concurrent walks.
type Node interface {
	ID() string
	Alias() string
	Kind() domain.NodeKind
	Execute(ctx context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error)
	// Next returns the node reached by following transition, if that edge exists.
	Next(transition string) (Node, bool)
	// Transitions lists the outgoing edge labels in lexical order.
	Transitions() []string
}

type edges map[string]Node

func (e edges) next(transition string) (Node, bool) {
	n, ok := e[transition]
	return n, ok
}

func (e edges) labels() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func copyEdges(in map[string]Node) edges {
	out := make(edges, len(in))
	for k, v := range in {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// SingleNode runs one action.
type SingleNode struct {
	id     string
	alias  string
	action ports.Action
	edges  edges
}

// NewSingleNode creates a node that applies action and follows the given edges.
func NewSingleNode(id, alias string, action ports.Action, next map[string]Node) *SingleNode {
	return &SingleNode{id: id, alias: alias, action: action, edges: copyEdges(next)}
}

func (n *SingleNode) ID() string            { return n.id }
func (n *SingleNode) Alias() string         { return n.alias }
func (n *SingleNode) Kind() domain.NodeKind { return domain.NodeKindSingle }
func (n *SingleNode) Transitions() []string { return n.edges.labels() }

func (n *SingleNode) Next(transition string) (Node, bool) {
	return n.edges.next(transition)
}

// Execute applies the action. A failed action yields the error transition and
// leaves the fragment as it was before the call.
func (n *SingleNode) Execute(ctx context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error) {
	result, err := n.action.Apply(ctx, fctx)
	if err != nil {
		return domain.Failure(fctx.Fragment), err
	}
	if result.Transition == "" {
		result.Transition = domain.DefaultTransition
	}
	return result, nil
}
