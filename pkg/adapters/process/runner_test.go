package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aretw0/taskgraph/pkg/adapters/process"
	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func input() domain.FragmentContext {
	return domain.FragmentContext{
		Fragment: domain.Fragment{
			ID:      "frag-1",
			Type:    "snippet",
			Body:    "hello from stdin",
			Payload: map[string]any{"user": "ada"},
		},
		Request: domain.ClientRequest{Params: map[string][]string{"page-size": {"20"}}},
	}
}

func shell(t *testing.T, f *process.Factory, script string, extra map[string]any) domain.FragmentResult {
	t.Helper()
	cfg := map[string]any{"command": "sh", "args": []any{"-c", script}}
	for k, v := range extra {
		cfg[k] = v
	}
	action, err := f.Create("proc", cfg, portsRuntime(), nil)
	require.NoError(t, err)
	res, err := action.Apply(context.Background(), input())
	require.NoError(t, err)
	return res
}

func TestAction_Inline(t *testing.T) {
	skipOnWindows(t)
	f := process.NewFactory(process.WithInlineExecution(true))

	t.Run("text output", func(t *testing.T) {
		res := shell(t, f, "cat", nil)
		assert.Equal(t, domain.DefaultTransition, res.Transition)
		assert.Equal(t, "hello from stdin", res.Fragment.Payload["proc"])
		assert.Equal(t, "ada", res.Fragment.Payload["user"])
	})

	t.Run("json output", func(t *testing.T) {
		res := shell(t, f, `echo "{\"id\":\"$TASKGRAPH_FRAGMENT_ID\",\"size\":$TASKGRAPH_PARAM_PAGE_SIZE}"`, map[string]any{"payloadKey": "out"})
		assert.Equal(t, map[string]any{"id": "frag-1", "size": float64(20)}, res.Fragment.Payload["out"])
	})

	t.Run("payload env", func(t *testing.T) {
		res := shell(t, f, `printf %s "$TASKGRAPH_PAYLOAD"`, nil)
		assert.Equal(t, map[string]any{"user": "ada"}, res.Fragment.Payload["proc"])
	})

	t.Run("configured env", func(t *testing.T) {
		res := shell(t, f, `echo $GREETING`, map[string]any{"env": map[string]any{"GREETING": "hi"}})
		assert.Equal(t, "hi", res.Fragment.Payload["proc"])
	})

	t.Run("non-zero exit", func(t *testing.T) {
		res := shell(t, f, "echo boom >&2; exit 3", nil)
		assert.Equal(t, domain.ErrorTransition, res.Transition)
		assert.Equal(t, 3, res.NodeLog["exitCode"])
		assert.Equal(t, "boom", res.NodeLog["stderr"])
		assert.NotContains(t, res.Fragment.Payload, "proc")
	})

	t.Run("timeout", func(t *testing.T) {
		action, err := f.Create("proc", map[string]any{"command": "sh", "args": []any{"-c", "sleep 5"}, "timeout": "50ms"}, portsRuntime(), nil)
		require.NoError(t, err)
		_, err = action.Apply(context.Background(), input())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("missing binary", func(t *testing.T) {
		action, err := f.Create("proc", map[string]any{"command": "taskgraph-no-such-binary"}, portsRuntime(), nil)
		require.NoError(t, err)
		_, err = action.Apply(context.Background(), input())
		assert.Error(t, err)
	})
}

func TestFactory_AllowList(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tools:
  - name: greet
    command: sh
    args: ["-c", "echo $GREETING $TASKGRAPH_FRAGMENT_TYPE"]
    env:
      GREETING: hello
  - name: incomplete
`), 0o644))

	tools, err := process.LoadTools(path)
	require.NoError(t, err)
	assert.Len(t, tools, 1)

	f := process.NewFactory(process.WithTools(tools))

	action, err := f.Create("greeting", map[string]any{"tool": "greet"}, portsRuntime(), nil)
	require.NoError(t, err)
	res, err := action.Apply(context.Background(), input())
	require.NoError(t, err)
	assert.Equal(t, "hello snippet", res.Fragment.Payload["greeting"])

	_, err = f.Create("x", map[string]any{"tool": "unknown"}, portsRuntime(), nil)
	assert.ErrorContains(t, err, "not registered")

	_, err = f.Create("x", map[string]any{"command": "sh"}, portsRuntime(), nil)
	assert.ErrorContains(t, err, "inline commands are disabled")

	_, err = f.Create("x", map[string]any{}, portsRuntime(), nil)
	assert.Error(t, err)
}

func TestLoadTools(t *testing.T) {
	tools, err := process.LoadTools(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, tools)

	path := filepath.Join(t.TempDir(), "tools.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tools":[{"name":"ls","command":"ls","args":["-la"]}]}`), 0o644))
	tools, err = process.LoadTools(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"-la"}, tools["ls"].Args)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tools: [:"), 0o644))
	_, err = process.LoadTools(bad)
	assert.Error(t, err)
}

func TestEnvironment(t *testing.T) {
	fctx := input()
	fctx.Request.Headers = map[string][]string{"X-Request-Id": {"r1", "r2"}}
	env := process.Environment(fctx)
	assert.Contains(t, env, "TASKGRAPH_FRAGMENT_ID=frag-1")
	assert.Contains(t, env, "TASKGRAPH_CONFIG={}")
	assert.Contains(t, env, "TASKGRAPH_PARAM_PAGE_SIZE=20")
	assert.Contains(t, env, "TASKGRAPH_HEADER_X_REQUEST_ID=r1")
}

func portsRuntime() ports.Runtime { return ports.Runtime{} }
