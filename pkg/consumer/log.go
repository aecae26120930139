package consumer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/aretw0/taskgraph/pkg/registry"
	"github.com/mitchellh/mapstructure"
)

const LogFactoryName = "log"

// LogConsumer logs every event through slog.
type LogConsumer struct {
	logger  *slog.Logger
	level   slog.Level
	entries bool
}

// NewLogConsumer creates a consumer logging events at level.
// With entries set, every trace entry is logged too.
func NewLogConsumer(logger *slog.Logger, level slog.Level, entries bool) *LogConsumer {
	return &LogConsumer{logger: logger, level: level, entries: entries}
}

func (c *LogConsumer) Accept(ctx context.Context, request domain.ClientRequest, event domain.FragmentEvent) {
	level := c.level
	if event.Status == domain.EventFailure && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	c.logger.Log(ctx, level, "fragment processed",
		"task", event.Task,
		"fragment_id", event.Fragment.ID,
		"fragment_type", event.Fragment.Type,
		"status", event.Status,
		"nodes", len(event.Log),
		"duration", event.Duration,
		"path", request.Path,
	)
	if !c.entries {
		return
	}
	for _, entry := range event.Log {
		attrs := []any{
			"task", entry.Task,
			"fragment_id", event.Fragment.ID,
			"alias", entry.Alias,
			"node_id", entry.NodeID,
			"status", entry.Status,
			"transition", entry.Transition,
			"duration", entry.Duration,
		}
		if entry.Error != "" {
			attrs = append(attrs, "error", entry.Error)
		}
		c.logger.Log(ctx, c.level, "node evaluated", attrs...)
	}
}

// LogFactory builds log consumers from {level, entries}.
type LogFactory struct{}

func (LogFactory) Name() string { return LogFactoryName }

func (LogFactory) Create(config map[string]any, rt ports.Runtime) (ports.EventsConsumer, error) {
	var cfg struct {
		Level   string `mapstructure:"level"`
		Entries bool   `mapstructure:"entries"`
	}
	if err := mapstructure.WeakDecode(config, &cfg); err != nil {
		return nil, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(defaultString(cfg.Level, "info")))); err != nil {
		return nil, err
	}
	return NewLogConsumer(rt.Log(), level, cfg.Entries), nil
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func init() {
	registry.Register(registry.PluginFunc(func(c *registry.Catalog) {
		c.AddConsumerFactory(LogFactory{})
		c.AddConsumerFactory(NewMetricsFactory(nil))
	}))
}
