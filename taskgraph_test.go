package taskgraph_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/taskgraph"
	"github.com/aretw0/taskgraph/pkg/adapters/memory"
	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/dsl"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragment(id, task string) domain.Fragment {
	f := domain.Fragment{ID: id, Type: "snippet", Body: "initial body", Payload: map[string]any{}}
	if task != "" {
		f.Configuration = map[string]any{domain.TaskKey: task}
	}
	return f
}

func productOptions() domain.Options {
	return dsl.New().
		Define("title", "inline-body", map[string]any{"body": "expected body"}).
		Define("price", "inline-payload", map[string]any{"payload": map[string]any{"amount": 10}}).
		Define("stock", "inline-payload", map[string]any{"payload": 3}).
		Define("fallback", "inline-body", map[string]any{"body": "fallback"}).
		Task("product", dsl.Action("title").Then(
			dsl.Subtasks(dsl.Action("price"), dsl.Action("stock")),
		)).
		Task("broken", dsl.Action("missing")).
		Build()
}

func TestEngine_Process(t *testing.T) {
	store := memory.NewStore(10)
	engine, err := taskgraph.New(productOptions(), taskgraph.WithConsumers(store))
	require.NoError(t, err)

	event, err := engine.Process(context.Background(), domain.ClientRequest{Path: "/p"}, fragment("f1", "product"))
	require.NoError(t, err)

	assert.Equal(t, domain.EventSuccess, event.Status)
	assert.Equal(t, "product", event.Task)
	assert.Equal(t, "expected body", event.Fragment.Body)
	assert.Equal(t, map[string]any{"amount": 10}, event.Fragment.Payload["price"])
	assert.Equal(t, 3, event.Fragment.Payload["stock"])
	// nested branches are traced before the subtasks node that joins them
	require.Len(t, event.Log, 4)
	assert.Equal(t, "title", event.Log[0].Alias)
	assert.ElementsMatch(t, []string{"price", "stock"}, []string{event.Log[1].Alias, event.Log[2].Alias})
	assert.Equal(t, "subtasks", event.Log[3].Alias)

	recent := store.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "f1", recent[0].Fragment.ID)
}

func TestEngine_ProcessWithoutTask(t *testing.T) {
	store := memory.NewStore(10)
	engine, err := taskgraph.New(productOptions(), taskgraph.WithConsumers(store))
	require.NoError(t, err)

	for _, f := range []domain.Fragment{fragment("plain", ""), fragment("unknown", "nope")} {
		event, err := engine.Process(context.Background(), domain.ClientRequest{}, f)
		require.NoError(t, err)
		assert.Equal(t, domain.EventUnprocessed, event.Status)
		assert.Equal(t, "initial body", event.Fragment.Body)
		assert.Empty(t, event.Log)
	}
	assert.Equal(t, 2, store.Accepted())
}

func TestEngine_CompileError(t *testing.T) {
	store := memory.NewStore(10)
	engine, err := taskgraph.New(productOptions(), taskgraph.WithConsumers(store))
	require.NoError(t, err)

	event, err := engine.Process(context.Background(), domain.ClientRequest{}, fragment("f", "broken"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Contains(t, err.Error(), "missing")
	assert.Equal(t, domain.EventUnprocessed, event.Status)
	assert.Equal(t, "broken", event.Task)
	assert.Zero(t, store.Accepted())
}

func TestEngine_ExecuteKeepsOrder(t *testing.T) {
	engine, err := taskgraph.New(productOptions(), taskgraph.WithMaxParallel(4))
	require.NoError(t, err)

	fragments := make([]domain.Fragment, 30)
	for i := range fragments {
		task := "product"
		if i%3 == 0 {
			task = ""
		}
		fragments[i] = fragment(string(rune('a'+i%26))+strings.Repeat("x", i/26), task)
	}

	events, err := engine.Execute(context.Background(), domain.ClientRequest{}, fragments)
	require.NoError(t, err)
	require.Len(t, events, len(fragments))
	for i, event := range events {
		assert.Equal(t, fragments[i].ID, event.Fragment.ID)
		if i%3 == 0 {
			assert.Equal(t, domain.EventUnprocessed, event.Status)
		} else {
			assert.Equal(t, domain.EventSuccess, event.Status)
		}
	}
}

func TestEngine_ExecuteReportsCompileErrors(t *testing.T) {
	engine, err := taskgraph.New(productOptions())
	require.NoError(t, err)

	events, err := engine.Execute(context.Background(), domain.ClientRequest{},
		[]domain.Fragment{fragment("ok", "product"), fragment("bad", "broken")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), `"bad"`)
	assert.Equal(t, domain.EventSuccess, events[0].Status)
	assert.Equal(t, domain.EventUnprocessed, events[1].Status)
}

func TestEngine_ConfiguredConsumers(t *testing.T) {
	options := productOptions()
	options.Consumers = []domain.ConsumerOptions{{Factory: "memory", Config: map[string]any{"capacity": 5}}}

	engine, err := taskgraph.New(options)
	require.NoError(t, err)
	require.Len(t, engine.Consumers(), 1)

	_, err = engine.Process(context.Background(), domain.ClientRequest{}, fragment("f", "product"))
	require.NoError(t, err)

	lister, ok := engine.Consumers()[0].(ports.EventLister)
	require.True(t, ok)
	assert.Len(t, lister.Recent(0), 1)

	options.Consumers = []domain.ConsumerOptions{{Factory: "kafka"}}
	_, err = taskgraph.New(options)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestEngine_WalkTimeout(t *testing.T) {
	options := dsl.New().
		Define("slow", "process", map[string]any{"command": "sleep", "args": []any{"2"}}).
		Task("slow", dsl.Action("slow")).
		Build()

	engine, err := taskgraph.New(options, taskgraph.WithWalkTimeout(50*time.Millisecond))
	require.NoError(t, err)

	started := time.Now()
	event, err := engine.Process(context.Background(), domain.ClientRequest{}, fragment("f", "slow"))
	require.NoError(t, err)
	assert.Less(t, time.Since(started), time.Second)
	assert.Equal(t, domain.EventFailure, event.Status)
	require.Len(t, event.Log, 1)
	assert.Equal(t, domain.NodeStatusTimeout, event.Log[0].Status)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	var entered, left, done atomic.Int32
	engine, err := taskgraph.New(productOptions(), taskgraph.WithLifecycleHooks(domain.LifecycleHooks{
		OnNodeEnter: func(context.Context, *domain.NodeEvent) { entered.Add(1) },
		OnNodeLeave: func(context.Context, *domain.TraceEntry) { left.Add(1) },
		OnWalkDone:  func(context.Context, *domain.FragmentEvent) { done.Add(1) },
	}))
	require.NoError(t, err)

	_, err = engine.Process(context.Background(), domain.ClientRequest{}, fragment("f", "product"))
	require.NoError(t, err)

	// title, subtasks and the two nested branches
	assert.Equal(t, int32(4), entered.Load())
	assert.Equal(t, int32(4), left.Load())
	assert.Equal(t, int32(1), done.Load())
}

func TestEngine_Inspect(t *testing.T) {
	engine, err := taskgraph.New(productOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"broken", "product"}, engine.Tasks())

	export, err := engine.Inspect("product")
	require.NoError(t, err)
	assert.Equal(t, "product", export.Task)
	assert.Len(t, export.Nodes, 4)
	assert.Equal(t, "title", export.Canonical.Alias)

	_, err = engine.Inspect("nope")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	task, ok, err := engine.Compile(fragment("f", "product"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, export.RootID, task.Root.ID())
}

func TestRunner_Run(t *testing.T) {
	engine, err := taskgraph.New(productOptions())
	require.NoError(t, err)

	in := `{"request":{"path":"/a"},"fragments":[{"id":"1","configuration":{"data-task":"product"}},{"id":"2"}]}
{"fragments":[{"id":"3","configuration":{"data-task":"broken"}}]}`
	var out bytes.Buffer
	runner := &taskgraph.Runner{Input: strings.NewReader(in), Output: &out}

	err = runner.Run(context.Background(), engine)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	var first domain.FragmentEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "expected body", first.Fragment.Body)
	assert.Equal(t, domain.EventSuccess, first.Status)
}

func TestRunner_Renderer(t *testing.T) {
	engine, err := taskgraph.New(productOptions())
	require.NoError(t, err)

	var out bytes.Buffer
	runner := &taskgraph.Runner{
		Input:  strings.NewReader(`{"fragments":[{"id":"1","configuration":{"data-task":"product"}}]}`),
		Output: &out,
		Renderer: func(e domain.FragmentEvent) (string, error) {
			return e.Fragment.ID + " " + string(e.Status), nil
		},
	}
	require.NoError(t, runner.Run(context.Background(), engine))
	assert.Equal(t, "1 success\n", out.String())
}

func TestRunner_InvalidInput(t *testing.T) {
	engine, err := taskgraph.New(productOptions())
	require.NoError(t, err)

	runner := &taskgraph.Runner{Input: strings.NewReader(`{"fragments":`), Output: &bytes.Buffer{}}
	assert.Error(t, runner.Run(context.Background(), engine))
}
