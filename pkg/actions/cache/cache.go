// Package cache provides the caching action: it wraps another action and keeps
// the payload entry it produces, keyed by a template rendered per fragment.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/taskgraph/pkg/actions"
	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

const (
	DefaultTTL         = 5 * time.Minute
	DefaultMaximumSize = 1000
)

// Store is the storage behind a caching action.
type Store interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Config is the configuration shared by caching action factories.
type Config struct {
	CacheKey    string `mapstructure:"cacheKey"`
	PayloadKey  string `mapstructure:"payloadKey"`
	TTL         string `mapstructure:"ttl"`
	MaximumSize int    `mapstructure:"maximumSize"`
}

// Settings is a validated Config.
type Settings struct {
	Key         *actions.Template
	PayloadKey  string
	TTL         time.Duration
	MaximumSize int
}

// ParseConfig decodes and validates a caching action configuration.
func ParseConfig(alias string, config map[string]any) (Settings, error) {
	var cfg Config
	if err := mapstructure.WeakDecode(config, &cfg); err != nil {
		return Settings{}, err
	}
	if cfg.CacheKey == "" {
		return Settings{}, errors.New("cacheKey is required")
	}
	key, err := actions.ParseTemplate(alias, cfg.CacheKey)
	if err != nil {
		return Settings{}, err
	}
	s := Settings{Key: key, PayloadKey: cfg.PayloadKey, TTL: DefaultTTL, MaximumSize: cfg.MaximumSize}
	if s.PayloadKey == "" {
		s.PayloadKey = alias
	}
	if cfg.TTL != "" {
		ttl, err := time.ParseDuration(cfg.TTL)
		if err != nil {
			return Settings{}, fmt.Errorf("ttl: %w", err)
		}
		if ttl <= 0 {
			return Settings{}, fmt.Errorf("ttl must be positive, got %s", cfg.TTL)
		}
		s.TTL = ttl
	}
	if s.MaximumSize <= 0 {
		s.MaximumSize = DefaultMaximumSize
	}
	return s, nil
}

// NewAction creates a caching action around doAction.
// On a hit the cached value is put in the payload and doAction is skipped.
// On a miss doAction runs and its payload entry is stored when it succeeded.
// Store failures degrade to a miss.
func NewAction(alias string, s Settings, store Store, doAction ports.Action, logger *slog.Logger) (ports.Action, error) {
	if doAction == nil {
		return nil, errors.New("doAction is required")
	}
	return ports.ActionFunc(func(ctx context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error) {
		key, err := s.Key.Render(fctx)
		if err != nil {
			return domain.FragmentResult{}, fmt.Errorf("render cache key: %w", err)
		}

		value, hit, err := store.Get(ctx, key)
		if err != nil {
			logger.Warn("cache lookup failed", "alias", alias, "key", key, "error", err)
		}
		if hit {
			return domain.Success(fctx.Fragment.WithPayload(s.PayloadKey, value)).
				WithLog(map[string]any{"cacheKey": key, "cached": true}), nil
		}

		result, err := doAction.Apply(ctx, fctx)
		if err != nil {
			return result, err
		}
		log := map[string]any{"cacheKey": key, "cached": false}
		if result.Transition == "" || result.Transition == domain.DefaultTransition {
			if v, ok := result.Fragment.Payload[s.PayloadKey]; ok {
				if err := store.Set(ctx, key, domain.CloneValue(v), s.TTL); err != nil {
					logger.Warn("cache store failed", "alias", alias, "key", key, "error", err)
				} else {
					log["stored"] = true
				}
			}
		}
		if result.NodeLog != nil {
			log["doAction"] = result.NodeLog
		}
		return result.WithLog(log), nil
	}), nil
}
