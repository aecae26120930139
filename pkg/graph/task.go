package graph

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aretw0/taskgraph/pkg/domain"
)

// Task is a compiled, named graph.
type Task struct {
	Name     string
	Root     Node
	Metadata Metadata
}

// Metadata indexes node metadata by node id.
type Metadata map[string]domain.NodeMetadata

// CanonicalNode is the id-free, deterministic rendering of a compiled node.
// Node ids are random, so debug output compared across builds uses this form.
type CanonicalNode struct {
	Alias       string                    `json:"alias"`
	Kind        domain.NodeKind           `json:"kind"`
	NodeFactory string                    `json:"nodeFactory"`
	Operation   domain.OperationMetadata  `json:"operation"`
	Transitions map[string]*CanonicalNode `json:"on,omitempty"`
	Nested      []*CanonicalNode          `json:"nested,omitempty"`
}

// Canonical renders the graph reachable from rootID as a tree.
func (m Metadata) Canonical(rootID string) (*CanonicalNode, error) {
	return m.canonical(rootID, map[string]bool{})
}

func (m Metadata) canonical(id string, path map[string]bool) (*CanonicalNode, error) {
	meta, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("node %q has no metadata", id)
	}
	if path[id] {
		return nil, fmt.Errorf("node %q is its own ancestor", id)
	}
	path[id] = true
	defer delete(path, id)

	node := &CanonicalNode{
		Alias:       meta.Alias,
		Kind:        meta.Kind,
		NodeFactory: meta.NodeFactory,
		Operation:   meta.Operation,
	}
	labels := make([]string, 0, len(meta.Transitions))
	for label := range meta.Transitions {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		child, err := m.canonical(meta.Transitions[label], path)
		if err != nil {
			return nil, err
		}
		if node.Transitions == nil {
			node.Transitions = make(map[string]*CanonicalNode, len(labels))
		}
		node.Transitions[label] = child
	}
	for _, nestedID := range meta.NestedNodes {
		child, err := m.canonical(nestedID, path)
		if err != nil {
			return nil, err
		}
		node.Nested = append(node.Nested, child)
	}
	return node, nil
}

// Export is the debug document of a task: its raw metadata and the canonical tree.
type Export struct {
	Task      string         `json:"task"`
	RootID    string         `json:"rootNodeId"`
	Nodes     Metadata       `json:"nodes"`
	Canonical *CanonicalNode `json:"graph"`
}

// Export builds the debug document of the task.
func (t *Task) Export() (*Export, error) {
	if t == nil || t.Root == nil {
		return nil, fmt.Errorf("task has no root node")
	}
	tree, err := t.Metadata.Canonical(t.Root.ID())
	if err != nil {
		return nil, err
	}
	return &Export{Task: t.Name, RootID: t.Root.ID(), Nodes: t.Metadata, Canonical: tree}, nil
}

// MarshalCanonical returns the indented JSON of the canonical tree.
func (t *Task) MarshalCanonical() ([]byte, error) {
	export, err := t.Export()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(export.Canonical, "", "  ")
}
