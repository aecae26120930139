package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/taskgraph"
	"github.com/aretw0/taskgraph/internal/config"
	"github.com/aretw0/taskgraph/pkg/adapters/process"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/aretw0/taskgraph/pkg/registry"
)

// EngineOptions controls how commands build an engine.
type EngineOptions struct {
	ConfigPath string
	// ToolsPath points to a tools file. When set, the process action
	// only runs the tools it lists.
	ToolsPath string
	Debug     bool
	Consumers []ports.EventsConsumer
}

// NewEngine loads the configuration and builds an engine from it.
func NewEngine(opts EngineOptions, logger *slog.Logger) (*taskgraph.Engine, *config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := createCatalog(opts)
	if err != nil {
		return nil, nil, err
	}

	engineOpts := []taskgraph.Option{
		taskgraph.WithCatalog(catalog),
		taskgraph.WithLogger(logger),
		taskgraph.WithConsumers(opts.Consumers...),
	}
	if cfg.Settings.WalkTimeout > 0 {
		engineOpts = append(engineOpts, taskgraph.WithWalkTimeout(cfg.Settings.WalkTimeout))
	}
	if cfg.Settings.MaxParallel > 0 {
		engineOpts = append(engineOpts, taskgraph.WithMaxParallel(cfg.Settings.MaxParallel))
	}
	if opts.Debug {
		engineOpts = append(engineOpts, taskgraph.WithLifecycleHooks(createDebugHooks(logger)))
	}

	engine, err := taskgraph.New(cfg.Options, engineOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("init engine: %w", err)
	}
	return engine, cfg, nil
}

// createCatalog returns the registered plugins, with the process action
// restricted to a tools file when one is given.
func createCatalog(opts EngineOptions) (*registry.Catalog, error) {
	catalog := registry.Discover()
	if opts.ToolsPath == "" {
		return catalog, nil
	}
	tools, err := process.LoadTools(opts.ToolsPath)
	if err != nil {
		return nil, err
	}
	catalog.AddActionFactory(process.NewFactory(
		process.WithTools(tools),
		process.WithInlineExecution(false),
		process.WithBaseDir(filepath.Dir(opts.ConfigPath)),
	))
	return catalog, nil
}
