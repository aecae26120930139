package dsl

import "github.com/aretw0/taskgraph/pkg/domain"

// Builder assembles a complete engine configuration.
type Builder struct {
	options domain.Options
}

// New creates an empty configuration builder.
func New() *Builder {
	return &Builder{options: domain.Options{
		Tasks:   make(domain.TaskDefinition),
		Actions: make(map[string]domain.ActionOptions),
	}}
}

// Define adds an action alias built by the named action factory.
func (b *Builder) Define(alias, factory string, config map[string]any) *Builder {
	b.options.Actions[alias] = domain.ActionOptions{Factory: factory, Config: config}
	return b
}

// Wrap adds an action alias whose factory wraps the doAction alias.
func (b *Builder) Wrap(alias, factory string, config map[string]any, doAction string) *Builder {
	b.options.Actions[alias] = domain.ActionOptions{Factory: factory, Config: config, DoAction: doAction}
	return b
}

// Task adds a task rooted at root.
func (b *Builder) Task(name string, root *NodeBuilder) *Builder {
	b.options.Tasks[name] = root.Build()
	return b
}

// Consumer adds a fragment events consumer.
func (b *Builder) Consumer(factory string, config map[string]any) *Builder {
	b.options.Consumers = append(b.options.Consumers, domain.ConsumerOptions{Factory: factory, Config: config})
	return b
}

// LogLevel sets how much node diagnostic data traces keep.
func (b *Builder) LogLevel(level domain.LogLevel) *Builder {
	b.options.LogLevel = level
	return b
}

// Build returns the assembled options.
func (b *Builder) Build() domain.Options {
	return b.options
}
