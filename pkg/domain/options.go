package domain

// NodeSpec names the node factory and carries its configuration.
type NodeSpec struct {
	Factory string         `json:"factory" yaml:"factory" mapstructure:"factory"`
	Config  map[string]any `json:"config,omitempty" yaml:"config,omitempty" mapstructure:"config"`
}

// NodeOptions is the declarative description of a node and its outgoing transitions.
type NodeOptions struct {
	Node        NodeSpec               `json:"node" yaml:"node" mapstructure:"node"`
	Transitions map[string]NodeOptions `json:"on,omitempty" yaml:"on,omitempty" mapstructure:"on"`
}

// TaskDefinition maps task names to the options of their root node.
type TaskDefinition map[string]NodeOptions

// ActionOptions configures one action alias.
// DoAction names another alias the action wraps, if its factory supports it.
type ActionOptions struct {
	Factory  string         `json:"factory" yaml:"factory" mapstructure:"factory"`
	Config   map[string]any `json:"config,omitempty" yaml:"config,omitempty" mapstructure:"config"`
	DoAction string         `json:"doAction,omitempty" yaml:"doAction,omitempty" mapstructure:"doAction"`
}

// ConsumerOptions configures one fragment events consumer.
type ConsumerOptions struct {
	Factory string         `json:"factory" yaml:"factory" mapstructure:"factory"`
	Config  map[string]any `json:"config,omitempty" yaml:"config,omitempty" mapstructure:"config"`
}

// Options is the complete engine configuration.
type Options struct {
	Tasks     TaskDefinition           `json:"tasks" yaml:"tasks" mapstructure:"tasks"`
	Actions   map[string]ActionOptions `json:"actions" yaml:"actions" mapstructure:"actions"`
	Consumers []ConsumerOptions        `json:"consumers,omitempty" yaml:"consumers,omitempty" mapstructure:"consumers"`
	LogLevel  LogLevel                 `json:"logLevel,omitempty" yaml:"logLevel,omitempty" mapstructure:"logLevel"`
}

// LogLevel controls how much node diagnostic data ends up in a trace.
type LogLevel string

const (
	// LogLevelInfo keeps node logs for every entry.
	LogLevelInfo LogLevel = "info"
	// LogLevelError keeps node logs only for failed entries.
	LogLevelError LogLevel = "error"
)

// Keep reports whether a node log for an entry with the given status is retained.
func (l LogLevel) Keep(status NodeStatus) bool {
	if l == LogLevelError {
		return status != NodeStatusSuccess
	}
	return true
}

// Names of the built-in node factories and their configuration keys.
const (
	ActionNodeFactory   = "action"
	SubtasksNodeFactory = "subtasks"

	ActionConfigKey      = "action"
	SubtasksConfigKey    = "subtasks"
	ParallelismConfigKey = "parallelism"
)
