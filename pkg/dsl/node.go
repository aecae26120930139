package dsl

import "github.com/aretw0/taskgraph/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node and its transitions.
type NodeBuilder struct {
	factory string
	config  map[string]any
	on      map[string]*NodeBuilder
}

// Node starts a node built by the named node factory.
func Node(factory string, config map[string]any) *NodeBuilder {
	cfg := make(map[string]any, len(config))
	for k, v := range config {
		cfg[k] = v
	}
	return &NodeBuilder{factory: factory, config: cfg}
}

// Action starts a node running the action alias.
func Action(alias string) *NodeBuilder {
	return Node(domain.ActionNodeFactory, map[string]any{domain.ActionConfigKey: alias})
}

// Subtasks starts a node running every branch in parallel.
func Subtasks(branches ...*NodeBuilder) *NodeBuilder {
	nested := make([]domain.NodeOptions, 0, len(branches))
	for _, b := range branches {
		nested = append(nested, b.Build())
	}
	return Node(domain.SubtasksNodeFactory, map[string]any{domain.SubtasksConfigKey: nested})
}

// Parallel bounds how many branches of a subtasks node run at once.
func (n *NodeBuilder) Parallel(limit int) *NodeBuilder {
	n.config[domain.ParallelismConfigKey] = limit
	return n
}

// Set adds a configuration entry to the node.
func (n *NodeBuilder) Set(key string, value any) *NodeBuilder {
	n.config[key] = value
	return n
}

// On adds the node reached when this node emits transition.
func (n *NodeBuilder) On(transition string, next *NodeBuilder) *NodeBuilder {
	if n.on == nil {
		n.on = make(map[string]*NodeBuilder)
	}
	n.on[transition] = next
	return n
}

// Then adds the node reached on the default transition.
func (n *NodeBuilder) Then(next *NodeBuilder) *NodeBuilder {
	return n.On(domain.DefaultTransition, next)
}

// Error adds the node reached on the error transition.
func (n *NodeBuilder) Error(next *NodeBuilder) *NodeBuilder {
	return n.On(domain.ErrorTransition, next)
}

// Build returns the node options described so far.
func (n *NodeBuilder) Build() domain.NodeOptions {
	opts := domain.NodeOptions{
		Node: domain.NodeSpec{Factory: n.factory, Config: n.config},
	}
	if len(n.on) > 0 {
		opts.Transitions = make(map[string]domain.NodeOptions, len(n.on))
		for label, next := range n.on {
			opts.Transitions[label] = next.Build()
		}
	}
	return opts
}
