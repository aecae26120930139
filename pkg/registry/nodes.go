package registry

import (
	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/graph"
)

// Nodes resolves node factory names.
type Nodes struct {
	factories map[string]graph.NodeFactory
}

// NewNodes instantiates every node factory of catalog with env.
func NewNodes(catalog *Catalog, env NodeEnv) *Nodes {
	ctors := catalog.nodeConstructors()
	n := &Nodes{factories: make(map[string]graph.NodeFactory, len(ctors))}
	for name, ctor := range ctors {
		n.factories[name] = ctor(env)
	}
	return n
}

// Resolve returns the node factory registered under kind.
func (n *Nodes) Resolve(kind string) (graph.NodeFactory, error) {
	f, ok := n.factories[kind]
	if !ok {
		return nil, &domain.FactoryNotFoundError{Kind: "node", Factory: kind}
	}
	return f, nil
}
