package domain

// NodeKind distinguishes nodes that run an operation from nodes that group sub-graphs.
type NodeKind string

const (
	NodeKindSingle    NodeKind = "single"
	NodeKindComposite NodeKind = "composite"
)

// OperationMetadata describes what a node does when it is evaluated.
type OperationMetadata struct {
	Factory string         `json:"factory"`
	Config  map[string]any `json:"config,omitempty"`
}

// NodeMetadata is the debug description of one compiled node.
// Transitions and NestedNodes refer to other nodes by id.
type NodeMetadata struct {
	NodeID      string            `json:"nodeId"`
	Task        string            `json:"task"`
	Alias       string            `json:"alias"`
	Kind        NodeKind          `json:"kind"`
	NodeFactory string            `json:"nodeFactory"`
	Operation   OperationMetadata `json:"operation"`
	Transitions map[string]string `json:"transitions,omitempty"`
	NestedNodes []string          `json:"nestedNodes,omitempty"`
}
