// Package inline provides actions that write configured values into a fragment.
package inline

import (
	"context"
	"fmt"

	"github.com/aretw0/taskgraph/pkg/actions"
	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/aretw0/taskgraph/pkg/registry"
	"github.com/mitchellh/mapstructure"
)

const (
	BodyFactoryName    = "inline-body"
	PayloadFactoryName = "inline-payload"
)

// Plugin registers the inline action factories.
var Plugin = registry.PluginFunc(func(c *registry.Catalog) {
	c.AddActionFactory(BodyFactory{})
	c.AddActionFactory(PayloadFactory{})
})

func init() {
	registry.Register(Plugin)
}

type bodyConfig struct {
	Body string `mapstructure:"body"`
}

// BodyFactory builds actions replacing the fragment body.
// The body may be a template rendered against the fragment.
type BodyFactory struct{}

func (BodyFactory) Name() string { return BodyFactoryName }

func (BodyFactory) Create(alias string, config map[string]any, _ ports.Runtime, _ ports.Action) (ports.Action, error) {
	var cfg bodyConfig
	if err := mapstructure.Decode(config, &cfg); err != nil {
		return nil, err
	}
	body, err := actions.ParseTemplate(alias, cfg.Body)
	if err != nil {
		return nil, err
	}
	return ports.ActionFunc(func(_ context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error) {
		rendered, err := body.Render(fctx)
		if err != nil {
			return domain.FragmentResult{}, fmt.Errorf("render body: %w", err)
		}
		f := fctx.Fragment
		f.Body = rendered
		return domain.Success(f).WithLog(map[string]any{"body": rendered}), nil
	}), nil
}

type payloadConfig struct {
	Alias   string `mapstructure:"alias"`
	Payload any    `mapstructure:"payload"`
}

// PayloadFactory builds actions storing a configured value in the fragment payload,
// under the configured key or the action alias.
type PayloadFactory struct{}

func (PayloadFactory) Name() string { return PayloadFactoryName }

func (PayloadFactory) Create(alias string, config map[string]any, _ ports.Runtime, _ ports.Action) (ports.Action, error) {
	var cfg payloadConfig
	if err := mapstructure.Decode(config, &cfg); err != nil {
		return nil, err
	}
	if cfg.Payload == nil {
		return nil, fmt.Errorf("payload is required")
	}
	key := cfg.Alias
	if key == "" {
		key = alias
	}
	return ports.ActionFunc(func(_ context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error) {
		value := domain.CloneValue(cfg.Payload)
		return domain.Success(fctx.Fragment.WithPayload(key, value)).
			WithLog(map[string]any{"key": key, "payload": value}), nil
	}), nil
}
