package consumer

import (
	"context"
	"errors"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

const MetricsFactoryName = "metrics"

// Metrics holds the Prometheus collectors fed by MetricsConsumer.
type Metrics struct {
	Events       *prometheus.CounterVec
	Nodes        *prometheus.CounterVec
	WalkDuration *prometheus.HistogramVec
	NodeDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors already registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskgraph_fragment_events_total",
			Help: "Fragments processed, by task and final status.",
		}, []string{"task", "status"}),
		Nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskgraph_node_evaluations_total",
			Help: "Node evaluations, by task, alias and status.",
		}, []string{"task", "alias", "status"}),
		WalkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskgraph_walk_duration_seconds",
			Help:    "Duration of task graph walks.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskgraph_node_duration_seconds",
			Help:    "Duration of node evaluations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task", "alias"}),
	}
	var err error
	if m.Events, err = register(reg, m.Events); err != nil {
		return nil, err
	}
	if m.Nodes, err = register(reg, m.Nodes); err != nil {
		return nil, err
	}
	if m.WalkDuration, err = register(reg, m.WalkDuration); err != nil {
		return nil, err
	}
	if m.NodeDuration, err = register(reg, m.NodeDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// MetricsConsumer records every event in Metrics.
type MetricsConsumer struct {
	metrics *Metrics
}

// NewMetricsConsumer creates a consumer feeding m.
func NewMetricsConsumer(m *Metrics) *MetricsConsumer {
	return &MetricsConsumer{metrics: m}
}

func (c *MetricsConsumer) Accept(_ context.Context, _ domain.ClientRequest, event domain.FragmentEvent) {
	task := event.Task
	if task == "" {
		task = "none"
	}
	c.metrics.Events.WithLabelValues(task, string(event.Status)).Inc()
	if event.Status != domain.EventUnprocessed {
		c.metrics.WalkDuration.WithLabelValues(task).Observe(event.Duration.Seconds())
	}
	for _, entry := range event.Log {
		c.metrics.Nodes.WithLabelValues(entry.Task, entry.Alias, string(entry.Status)).Inc()
		c.metrics.NodeDuration.WithLabelValues(entry.Task, entry.Alias).Observe(entry.Duration.Seconds())
	}
}

// MetricsFactory builds metrics consumers registered with one Registerer.
type MetricsFactory struct {
	reg prometheus.Registerer
}

// NewMetricsFactory creates the "metrics" consumer factory.
// A nil reg means prometheus.DefaultRegisterer.
func NewMetricsFactory(reg prometheus.Registerer) *MetricsFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &MetricsFactory{reg: reg}
}

func (f *MetricsFactory) Name() string { return MetricsFactoryName }

func (f *MetricsFactory) Create(_ map[string]any, _ ports.Runtime) (ports.EventsConsumer, error) {
	m, err := NewMetrics(f.reg)
	if err != nil {
		return nil, err
	}
	return NewMetricsConsumer(m), nil
}
