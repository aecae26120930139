package consumer_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/taskgraph/internal/logging"
	"github.com/aretw0/taskgraph/pkg/consumer"
	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	contract "github.com/aretw0/taskgraph/pkg/ports/tests"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogConsumer_Contract(t *testing.T) {
	out := &syncBuffer{}
	c := consumer.NewLogConsumer(logging.NewWithWriter(out, slog.LevelInfo, false), slog.LevelInfo, false)

	contract.EventsConsumerContractTest(t, c, func(*testing.T) int {
		return strings.Count(out.String(), "fragment processed")
	})
}

func TestLogConsumer_Entries(t *testing.T) {
	out := &syncBuffer{}
	c := consumer.NewLogConsumer(logging.NewWithWriter(out, slog.LevelDebug, false), slog.LevelDebug, true)

	c.Accept(context.Background(), domain.ClientRequest{Path: "/x"}, domain.FragmentEvent{
		Task:     "t",
		Fragment: domain.Fragment{ID: "f"},
		Status:   domain.EventFailure,
		Log: []domain.TraceEntry{
			{Task: "t", Alias: "a", Status: domain.NodeStatusSuccess, Transition: "_success"},
			{Task: "t", Alias: "b", Status: domain.NodeStatusError, Transition: "_error", Error: "boom"},
		},
	})

	text := out.String()
	assert.Contains(t, text, "level=WARN msg=\"fragment processed\"")
	assert.Equal(t, 2, strings.Count(text, "node evaluated"))
	assert.Contains(t, text, "err=boom")
}

func TestLogFactory(t *testing.T) {
	_, err := consumer.LogFactory{}.Create(map[string]any{"level": "debug", "entries": "true"}, ports.Runtime{})
	require.NoError(t, err)

	_, err = consumer.LogFactory{}.Create(map[string]any{"level": "loud"}, ports.Runtime{})
	assert.Error(t, err)
}

func TestMetricsConsumer_Contract(t *testing.T) {
	m, err := consumer.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	c := consumer.NewMetricsConsumer(m)

	contract.EventsConsumerContractTest(t, c, func(*testing.T) int {
		total := 0.0
		for _, task := range []string{"contract", "none"} {
			for _, status := range []domain.EventStatus{domain.EventSuccess, domain.EventFailure, domain.EventUnprocessed} {
				total += testutil.ToFloat64(m.Events.WithLabelValues(task, string(status)))
			}
		}
		return int(total)
	})
}

func TestMetricsConsumer_Nodes(t *testing.T) {
	m, err := consumer.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	c := consumer.NewMetricsConsumer(m)

	c.Accept(context.Background(), domain.ClientRequest{}, domain.FragmentEvent{
		Task:     "t",
		Status:   domain.EventSuccess,
		Duration: 10 * time.Millisecond,
		Log: []domain.TraceEntry{
			{Task: "t", Alias: "a", Status: domain.NodeStatusSuccess, Duration: time.Millisecond},
			{Task: "t", Alias: "a", Status: domain.NodeStatusError, Duration: time.Millisecond},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Nodes.WithLabelValues("t", "a", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Nodes.WithLabelValues("t", "a", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.WalkDuration))
}

func TestNewMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := consumer.NewMetrics(reg)
	require.NoError(t, err)
	second, err := consumer.NewMetrics(reg)
	require.NoError(t, err)

	first.Events.WithLabelValues("t", "success").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.Events.WithLabelValues("t", "success")))

	f := consumer.NewMetricsFactory(reg)
	_, err = f.Create(nil, ports.Runtime{})
	assert.NoError(t, err)
}
