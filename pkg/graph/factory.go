package graph

import "github.com/aretw0/taskgraph/pkg/domain"

// NodeProvider is handed to node factories during compilation.
// It compiles nested node options within the same task and collects node metadata.
type NodeProvider interface {
	TaskName() string
	Compile(options domain.NodeOptions) (Node, error)
	Record(meta domain.NodeMetadata)
}

// NodeFactory builds one kind of node.
// edges holds the already compiled targets of the node's transitions.
type NodeFactory interface {
	Name() string
	Build(options domain.NodeOptions, edges map[string]Node, provider NodeProvider) (Node, error)
}
