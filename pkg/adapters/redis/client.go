package redis

import (
	"github.com/mitchellh/mapstructure"
	backend "github.com/redis/go-redis/v9"
)

// ConnectionConfig is the connection part of a plugin configuration.
type ConnectionConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Option configures the Redis plugin factories.
type Option func(*options)

type options struct {
	client backend.UniversalClient
}

// WithClient makes the factories share client instead of dialing from configuration.
func WithClient(client backend.UniversalClient) Option {
	return func(o *options) {
		o.client = client
	}
}

func (o options) clientFor(config map[string]any) (backend.UniversalClient, error) {
	if o.client != nil {
		return o.client, nil
	}
	var conn ConnectionConfig
	if err := mapstructure.WeakDecode(pick(config, "addr", "password", "db"), &conn); err != nil {
		return nil, err
	}
	if conn.Addr == "" {
		conn.Addr = "localhost:6379"
	}
	return backend.NewClient(&backend.Options{
		Addr:     conn.Addr,
		Password: conn.Password,
		DB:       conn.DB,
	}), nil
}

// pick copies the given keys of config, leaving the rest for other decoders.
func pick(config map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := config[k]; ok {
			out[k] = v
		}
	}
	return out
}

// omit copies config without the given keys.
func omit(config map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(config))
	for k, v := range config {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
