package compiler_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/taskgraph/internal/compiler"
	"github.com/aretw0/taskgraph/internal/logging"
	"github.com/aretw0/taskgraph/pkg/actions/inline"
	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/dsl"
	"github.com/aretw0/taskgraph/pkg/graph"
	"github.com/aretw0/taskgraph/pkg/nodes"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/aretw0/taskgraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(t *testing.T, opts domain.Options, builderOpts ...compiler.Option) *compiler.Builder {
	t.Helper()
	catalog := registry.NewCatalog(nodes.Plugin, inline.Plugin)
	actions := registry.NewActions(catalog, opts.Actions, ports.Runtime{})
	resolver := registry.NewNodes(catalog, registry.NodeEnv{Actions: actions, Logger: logging.NewNop()})
	builderOpts = append([]compiler.Option{compiler.WithLogger(logging.NewNop())}, builderOpts...)
	return compiler.NewBuilder(opts.Tasks, resolver, builderOpts...)
}

func fragmentFor(task string) domain.Fragment {
	return domain.Fragment{ID: "f", Type: "snippet", Configuration: map[string]any{domain.TaskKey: task}}
}

func contractOptions() domain.Options {
	return dsl.New().
		Define("a", "inline-body", map[string]any{"body": "A"}).
		Define("x", "inline-payload", map[string]any{"payload": "X"}).
		Define("y", "inline-payload", map[string]any{"payload": "Y"}).
		Define("z", "inline-body", map[string]any{"body": "Z"}).
		Define("fallback", "inline-body", map[string]any{"body": "fallback"}).
		Task("contract", dsl.Action("a").
			Then(dsl.Subtasks(dsl.Action("x"), dsl.Action("y").Then(dsl.Action("z")))).
			Error(dsl.Action("fallback"))).
		Build()
}

func TestBuilder_NoTask(t *testing.T) {
	b := newBuilder(t, contractOptions())

	task, ok, err := b.Build(domain.Fragment{ID: "plain"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, task)

	task, ok, err = b.Build(fragmentFor("undefined"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, task)
}

func TestBuilder_MissingActionNamesAlias(t *testing.T) {
	opts := dsl.New().Task("broken", dsl.Action("ghost")).Build()
	b := newBuilder(t, opts)

	_, ok, err := b.Build(fragmentFor("broken"))
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	var notFound *domain.ActionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Alias)
	assert.Contains(t, err.Error(), "ghost")
}

func TestBuilder_MissingNestedActionFailsTheTask(t *testing.T) {
	opts := dsl.New().
		Define("a", "inline-body", map[string]any{"body": "A"}).
		Task("broken", dsl.Action("a").Then(dsl.Subtasks(dsl.Action("a"), dsl.Action("ghost")))).
		Build()
	b := newBuilder(t, opts)

	_, err := b.Compile("broken")
	var notFound *domain.ActionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Alias)
}

func TestBuilder_UnknownNodeFactory(t *testing.T) {
	opts := dsl.New().Task("t", dsl.Node("teleport", nil)).Build()
	_, err := newBuilder(t, opts).Compile("t")

	var notFound *domain.FactoryNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "node", notFound.Kind)
	assert.Equal(t, "teleport", notFound.Factory)
}

func TestBuilder_Structure(t *testing.T) {
	b := newBuilder(t, contractOptions())

	task, ok, err := b.Build(fragmentFor("contract"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "contract", task.Name)
	assert.Len(t, task.Metadata, 6)

	root := task.Root
	assert.Equal(t, "a", root.Alias())
	assert.Equal(t, []string{domain.DefaultTransition, domain.ErrorTransition}, root.Transitions())

	next, ok := root.Next(domain.DefaultTransition)
	require.True(t, ok)
	composite, ok := next.(*graph.CompositeNode)
	require.True(t, ok)
	require.Len(t, composite.Nested(), 2)
	assert.Equal(t, "x", composite.Nested()[0].Alias())

	meta := task.Metadata[root.ID()]
	assert.Equal(t, "contract", meta.Task)
	assert.Equal(t, composite.ID(), meta.Transitions[domain.DefaultTransition])
	assert.Equal(t, "inline-body", meta.Operation.Factory)
}

func TestBuilder_CompilesOnce(t *testing.T) {
	b := newBuilder(t, contractOptions())

	first, err := b.Compile("contract")
	require.NoError(t, err)
	second, _, err := b.Build(fragmentFor("contract"))
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = b.Compile("missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Equal(t, []string{"contract"}, b.Tasks())
}

func TestBuilder_RejectsCycles(t *testing.T) {
	opts := contractOptions()
	root := opts.Tasks["contract"]
	root.Transitions["loop"] = root
	opts.Tasks["contract"] = root

	_, err := newBuilder(t, opts).Compile("contract")
	var graphErr *domain.GraphError
	require.ErrorAs(t, err, &graphErr)
	assert.Equal(t, "contract", graphErr.Task)
}

func TestBuilder_MaxDepth(t *testing.T) {
	chain := dsl.Action("a")
	for i := 0; i < 5; i++ {
		chain = dsl.Action("a").Then(chain)
	}
	opts := dsl.New().Define("a", "inline-body", map[string]any{"body": "A"}).Task("deep", chain).Build()

	_, err := newBuilder(t, opts, compiler.WithMaxDepth(3)).Compile("deep")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = newBuilder(t, opts).Compile("deep")
	assert.NoError(t, err)
}

func TestBuilder_DebugContract(t *testing.T) {
	task, err := newBuilder(t, contractOptions()).Compile("contract")
	require.NoError(t, err)

	got, err := task.MarshalCanonical()
	require.NoError(t, err)

	expected, err := os.ReadFile(filepath.Join("testdata", "expected-contract.json"))
	require.NoError(t, err)
	assert.JSONEq(t, string(expected), string(got))
}
