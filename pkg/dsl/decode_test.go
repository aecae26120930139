package dsl_test

import (
	"testing"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOptions_Shorthands(t *testing.T) {
	raw := map[string]any{
		"tasks": map[string]any{
			"short": map[string]any{
				"action": "a",
				"onTransitions": map[string]any{
					"_error": map[string]any{"action": "b"},
				},
			},
			"parallel": map[string]any{
				"subtasks": []any{
					map[string]any{"action": "x"},
					map[string]any{"node": map[string]any{"factory": "action", "config": map[string]any{"action": "y"}}},
				},
				"parallelism": 1,
			},
			"full": map[string]any{
				"node": map[string]any{"factory": "action", "config": map[string]any{"action": "c"}},
				"on":   map[string]any{"custom": map[string]any{"action": "d"}},
			},
		},
		"actions": map[string]any{
			"a": map[string]any{"factory": "inline-body", "config": map[string]any{"body": "A"}},
			"b": map[string]any{"factory": "in-memory-cache", "doAction": "a"},
		},
		"consumers": []any{map[string]any{"factory": "log"}},
		"logLevel":  "error",
	}

	opts, err := dsl.DecodeOptions(raw)
	require.NoError(t, err)

	short := opts.Tasks["short"]
	assert.Equal(t, domain.ActionNodeFactory, short.Node.Factory)
	assert.Equal(t, "a", short.Node.Config["action"])
	assert.Equal(t, "b", short.Transitions["_error"].Node.Config["action"])

	parallel := opts.Tasks["parallel"]
	assert.Equal(t, domain.SubtasksNodeFactory, parallel.Node.Factory)
	assert.Equal(t, 1, parallel.Node.Config["parallelism"])
	nested, err := dsl.DecodeNodes(parallel.Node.Config["subtasks"])
	require.NoError(t, err)
	require.Len(t, nested, 2)
	assert.Equal(t, "x", nested[0].Node.Config["action"])
	assert.Equal(t, "y", nested[1].Node.Config["action"])

	assert.Equal(t, "d", opts.Tasks["full"].Transitions["custom"].Node.Config["action"])
	assert.Equal(t, "a", opts.Actions["b"].DoAction)
	assert.Equal(t, "log", opts.Consumers[0].Factory)
	assert.Equal(t, domain.LogLevelError, opts.LogLevel)
}

func TestDecodeOptions_Invalid(t *testing.T) {
	cases := map[string]map[string]any{
		"two forms":      {"tasks": map[string]any{"t": map[string]any{"action": "a", "subtasks": []any{}}}},
		"no form":        {"tasks": map[string]any{"t": map[string]any{"on": map[string]any{}}}},
		"unknown key":    {"tasks": map[string]any{"t": map[string]any{"action": "a", "bogus": 1}}},
		"empty action":   {"tasks": map[string]any{"t": map[string]any{"action": ""}}},
		"bad log level":  {"logLevel": "debug"},
		"unknown top":    {"extra": true},
		"tasks not map":  {"tasks": []any{"x"}},
		"stray parallel": {"tasks": map[string]any{"t": map[string]any{"action": "a", "parallelism": 2}}},
		"both on forms": {"tasks": map[string]any{"t": map[string]any{
			"action": "a", "on": map[string]any{}, "onTransitions": map[string]any{},
		}}},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := dsl.DecodeOptions(raw)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestDecodeOptions_Empty(t *testing.T) {
	opts, err := dsl.DecodeOptions(map[string]any{})
	require.NoError(t, err)
	assert.NotNil(t, opts.Tasks)
	assert.NotNil(t, opts.Actions)
}

func TestDecodeNode_AcceptsNodeOptions(t *testing.T) {
	in := dsl.Action("a").Build()
	out, err := dsl.DecodeNode(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = dsl.DecodeNodes("not a list")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
