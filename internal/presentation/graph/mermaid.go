package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/taskgraph/pkg/domain"
	taskgraph "github.com/aretw0/taskgraph/pkg/graph"
)

// GraphOverlay marks nodes of a walk on the rendered graph.
type GraphOverlay struct {
	VisitedNodes []string
	FailedNodes  []string
}

// OverlayFromEvent builds an overlay from the trace of a walk.
func OverlayFromEvent(event domain.FragmentEvent) *GraphOverlay {
	o := &GraphOverlay{}
	for _, entry := range event.Log {
		if entry.Status == domain.NodeStatusSuccess {
			o.VisitedNodes = append(o.VisitedNodes, entry.NodeID)
		} else {
			o.FailedNodes = append(o.FailedNodes, entry.NodeID)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of a compiled task.
// Shapes:
// - Action: [Rectangle]
// - Subtasks: [[Subroutine]], with dotted arrows to the nested graphs
// Node ids are random, so nodes are numbered in traversal order and the
// output is stable across compilations.
func GenerateMermaid(export *taskgraph.Export, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make(map[string]string, len(export.Nodes))
	var order []string
	var visit func(id string)
	visit = func(id string) {
		if _, seen := ids[id]; seen {
			return
		}
		meta, ok := export.Nodes[id]
		if !ok {
			return
		}
		ids[id] = fmt.Sprintf("n%d", len(order))
		order = append(order, id)
		for _, label := range sortedLabels(meta.Transitions) {
			visit(meta.Transitions[label])
		}
		for _, nested := range meta.NestedNodes {
			visit(nested)
		}
	}
	visit(export.RootID)

	for _, id := range order {
		meta := export.Nodes[id]
		opener, closer := "[", "]"
		if meta.Kind == domain.NodeKindComposite {
			opener, closer = "[[", "]]"
		}
		label := escape(meta.Alias)
		if meta.Operation.Factory != "" && meta.Operation.Factory != meta.Alias {
			label += "<br/><i>" + escape(meta.Operation.Factory) + "</i>"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", ids[id], opener, label, closer)
	}

	for _, id := range order {
		meta := export.Nodes[id]
		for _, label := range sortedLabels(meta.Transitions) {
			target, ok := ids[meta.Transitions[label]]
			if !ok {
				continue
			}
			arrow := fmt.Sprintf("-- \"%s\" -->", escape(label))
			if label == domain.ErrorTransition {
				arrow = fmt.Sprintf("-. \"%s\" .->", escape(label))
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", ids[id], arrow, target)
		}
		for _, nested := range meta.NestedNodes {
			if target, ok := ids[nested]; ok {
				fmt.Fprintf(&sb, "    %s -.-> %s\n", ids[id], target)
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:3px,color:#000;\n")
		writeClass(&sb, ids, overlay.VisitedNodes, "visited")
		writeClass(&sb, ids, overlay.FailedNodes, "failed")
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, ids map[string]string, nodes []string, class string) {
	seen := make(map[string]bool)
	for _, id := range nodes {
		safe, ok := ids[id]
		if !ok || seen[safe] {
			continue
		}
		seen[safe] = true
		fmt.Fprintf(sb, "    class %s %s;\n", safe, class)
	}
}

func sortedLabels(m map[string]string) []string {
	labels := make([]string, 0, len(m))
	for label := range m {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
