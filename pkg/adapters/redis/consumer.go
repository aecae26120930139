package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/mitchellh/mapstructure"
	backend "github.com/redis/go-redis/v9"
)

const (
	ConsumerFactoryName = "redis"
	defaultEventsKey    = "taskgraph:events"
	defaultMaxLen       = 1000
)

// Record is what the consumer stores for each event.
type Record struct {
	Request  domain.ClientRequest `json:"request"`
	Event    domain.FragmentEvent `json:"event"`
	Received time.Time            `json:"received"`
}

// ConsumerFactory builds the "redis" fragment events consumer.
type ConsumerFactory struct {
	opts options
}

// NewConsumerFactory creates the "redis" consumer factory.
func NewConsumerFactory(opts ...Option) *ConsumerFactory {
	f := &ConsumerFactory{}
	for _, opt := range opts {
		opt(&f.opts)
	}
	return f
}

func (f *ConsumerFactory) Name() string { return ConsumerFactoryName }

type consumerConfig struct {
	Key     string `mapstructure:"key"`
	MaxLen  int64  `mapstructure:"maxLen"`
	Channel string `mapstructure:"channel"`
	TTL     string `mapstructure:"ttl"`
}

// Create accepts addr, password, db, key, maxLen, channel and ttl.
func (f *ConsumerFactory) Create(config map[string]any, rt ports.Runtime) (ports.EventsConsumer, error) {
	var cfg consumerConfig
	if err := mapstructure.WeakDecode(omit(config, "addr", "password", "db"), &cfg); err != nil {
		return nil, err
	}
	client, err := f.opts.clientFor(config)
	if err != nil {
		return nil, err
	}
	opts := []ConsumerOption{WithKey(cfg.Key), WithMaxLen(cfg.MaxLen), WithChannel(cfg.Channel), withLogger(rt.Log())}
	if cfg.TTL != "" {
		ttl, err := time.ParseDuration(cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("ttl: %w", err)
		}
		opts = append(opts, WithTTL(ttl))
	}
	return NewConsumer(client, opts...), nil
}

// Consumer pushes events onto a capped Redis list and optionally publishes them.
type Consumer struct {
	client  backend.UniversalClient
	key     string
	maxLen  int64
	channel string
	ttl     time.Duration
	logger  *slog.Logger
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithKey sets the list key. Empty keeps the default.
func WithKey(key string) ConsumerOption {
	return func(c *Consumer) {
		if key != "" {
			c.key = key
		}
	}
}

// WithMaxLen caps the list length. Zero or less keeps the default.
func WithMaxLen(n int64) ConsumerOption {
	return func(c *Consumer) {
		if n > 0 {
			c.maxLen = n
		}
	}
}

// WithChannel publishes every record on channel as well.
func WithChannel(channel string) ConsumerOption {
	return func(c *Consumer) {
		c.channel = channel
	}
}

// WithTTL expires the whole list ttl after the last event.
func WithTTL(ttl time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.ttl = ttl
	}
}

func withLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// NewConsumer creates a consumer writing with client.
func NewConsumer(client backend.UniversalClient, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		client: client,
		key:    defaultEventsKey,
		maxLen: defaultMaxLen,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Accept stores the event. Redis failures are logged, never returned.
func (c *Consumer) Accept(ctx context.Context, request domain.ClientRequest, event domain.FragmentEvent) {
	data, err := json.Marshal(Record{Request: request, Event: event, Received: time.Now().UTC()})
	if err != nil {
		c.logger.Error("failed to encode fragment event", "fragment_id", event.Fragment.ID, "error", err)
		return
	}

	_, err = c.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.LPush(ctx, c.key, data)
		pipe.LTrim(ctx, c.key, 0, c.maxLen-1)
		if c.ttl > 0 {
			pipe.Expire(ctx, c.key, c.ttl)
		}
		if c.channel != "" {
			pipe.Publish(ctx, c.channel, data)
		}
		return nil
	})
	if err != nil {
		c.logger.Error("failed to store fragment event", "key", c.key, "fragment_id", event.Fragment.ID, "error", err)
	}
}

// Records returns up to limit stored records, newest first.
func (c *Consumer) Records(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := c.client.LRange(ctx, c.key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		var r Record
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

// Recent implements ports.EventLister.
func (c *Consumer) Recent(limit int) []domain.FragmentEvent {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	records, err := c.Records(ctx, limit)
	if err != nil {
		c.logger.Error("failed to read fragment events", "key", c.key, "error", err)
		return nil
	}
	events := make([]domain.FragmentEvent, 0, len(records))
	for _, r := range records {
		events = append(events, r.Event)
	}
	return events
}

// Len returns the stored list length.
func (c *Consumer) Len(ctx context.Context) (int64, error) {
	return c.client.LLen(ctx, c.key).Result()
}

var (
	_ ports.EventsConsumer = (*Consumer)(nil)
	_ ports.EventLister    = (*Consumer)(nil)
)
