package nodes

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/graph"
	"github.com/aretw0/taskgraph/pkg/registry"
	"github.com/google/uuid"
)

// ActionFactory builds single nodes running an action alias.
type ActionFactory struct {
	actions registry.ActionResolver
	logger  *slog.Logger
}

// NewActionFactory creates the "action" node factory.
func NewActionFactory(env registry.NodeEnv) graph.NodeFactory {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionFactory{actions: env.Actions, logger: logger}
}

func (f *ActionFactory) Name() string { return domain.ActionNodeFactory }

func (f *ActionFactory) Build(options domain.NodeOptions, edges map[string]graph.Node, provider graph.NodeProvider) (graph.Node, error) {
	alias, ok := options.Node.Config[domain.ActionConfigKey].(string)
	if !ok || alias == "" {
		return nil, &domain.GraphError{Task: provider.TaskName(), Reason: "action node without an action alias"}
	}
	if f.actions == nil {
		return nil, &domain.ActionNotFoundError{Alias: alias}
	}
	action, err := f.actions.Resolve(alias)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", provider.TaskName(), err)
	}

	id := uuid.NewString()
	operation := domain.OperationMetadata{}
	if opts, ok := f.actions.Options(alias); ok {
		operation = domain.OperationMetadata{Factory: opts.Factory, Config: opts.Config}
	}
	provider.Record(domain.NodeMetadata{
		NodeID:      id,
		Task:        provider.TaskName(),
		Alias:       alias,
		Kind:        domain.NodeKindSingle,
		NodeFactory: f.Name(),
		Operation:   operation,
		Transitions: edgeIDs(edges),
	})
	f.logger.Debug("action node built", "task", provider.TaskName(), "alias", alias, "node_id", id)

	return graph.NewSingleNode(id, alias, action, edges), nil
}

func edgeIDs(edges map[string]graph.Node) map[string]string {
	if len(edges) == 0 {
		return nil
	}
	out := make(map[string]string, len(edges))
	for label, node := range edges {
		if node != nil {
			out[label] = node.ID()
		}
	}
	return out
}
