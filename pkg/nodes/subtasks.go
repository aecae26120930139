package nodes

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/dsl"
	"github.com/aretw0/taskgraph/pkg/graph"
	"github.com/aretw0/taskgraph/pkg/registry"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// SubtasksFactory builds composite nodes from a list of nested node options.
type SubtasksFactory struct {
	logger *slog.Logger
}

// NewSubtasksFactory creates the "subtasks" node factory.
func NewSubtasksFactory(env registry.NodeEnv) graph.NodeFactory {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SubtasksFactory{logger: logger}
}

func (f *SubtasksFactory) Name() string { return domain.SubtasksNodeFactory }

type subtasksConfig struct {
	Parallelism int `mapstructure:"parallelism"`
}

func (f *SubtasksFactory) Build(options domain.NodeOptions, edges map[string]graph.Node, provider graph.NodeProvider) (graph.Node, error) {
	nested, err := dsl.DecodeNodes(options.Node.Config[domain.SubtasksConfigKey])
	if err != nil {
		return nil, fmt.Errorf("task %q: subtasks: %w", provider.TaskName(), err)
	}
	if len(nested) == 0 {
		return nil, &domain.GraphError{Task: provider.TaskName(), Reason: "subtasks node without subtasks"}
	}

	var cfg subtasksConfig
	if limit, ok := options.Node.Config[domain.ParallelismConfigKey]; ok {
		if err := mapstructure.WeakDecode(map[string]any{"parallelism": limit}, &cfg); err != nil {
			return nil, fmt.Errorf("%w: task %q: parallelism: %v", domain.ErrConfiguration, provider.TaskName(), err)
		}
	}

	roots := make([]graph.Node, 0, len(nested))
	ids := make([]string, 0, len(nested))
	for i, opts := range nested {
		root, err := provider.Compile(opts)
		if err != nil {
			return nil, fmt.Errorf("subtask %d: %w", i, err)
		}
		roots = append(roots, root)
		ids = append(ids, root.ID())
	}

	id := uuid.NewString()
	provider.Record(domain.NodeMetadata{
		NodeID:      id,
		Task:        provider.TaskName(),
		Alias:       domain.SubtasksNodeFactory,
		Kind:        domain.NodeKindComposite,
		NodeFactory: f.Name(),
		Operation: domain.OperationMetadata{
			Factory: f.Name(),
			Config:  map[string]any{domain.ParallelismConfigKey: cfg.Parallelism},
		},
		Transitions: edgeIDs(edges),
		NestedNodes: ids,
	})
	f.logger.Debug("subtasks node built", "task", provider.TaskName(), "branches", len(roots), "node_id", id)

	return graph.NewCompositeNode(id, domain.SubtasksNodeFactory, roots, edges, cfg.Parallelism), nil
}
