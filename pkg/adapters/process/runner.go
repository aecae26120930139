// Package process provides the "process" action, which runs a local command
// and stores its output in the fragment payload.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/aretw0/taskgraph/pkg/registry"
	"github.com/mitchellh/mapstructure"
)

const (
	FactoryName = "process"
	EnvPrefix   = "TASKGRAPH_"

	waitDelay = time.Second
)

// Plugin registers a process factory that accepts inline commands.
var Plugin = registry.PluginFunc(func(c *registry.Catalog) {
	c.AddActionFactory(NewFactory(WithInlineExecution(true)))
})

func init() {
	registry.Register(Plugin)
}

// Option configures a Factory.
type Option func(*Factory)

// WithTools populates the allow-list of named tools.
func WithTools(tools map[string]Tool) Option {
	return func(f *Factory) {
		for name, tool := range tools {
			f.tools[name] = tool
		}
	}
}

// WithInlineExecution allows actions to declare their own command.
func WithInlineExecution(allow bool) Option {
	return func(f *Factory) { f.allowInline = allow }
}

// WithBaseDir sets the working directory for commands that do not declare one.
func WithBaseDir(dir string) Option {
	return func(f *Factory) { f.baseDir = dir }
}

// Factory builds process actions.
//
// An action either names a tool from the allow-list or, when inline execution
// is enabled, declares command and args itself. Fragment data never reaches the
// command line: it is passed through TASKGRAPH_* environment variables and the
// body is written to stdin.
type Factory struct {
	tools       map[string]Tool
	allowInline bool
	baseDir     string
}

// NewFactory creates a process factory. Inline execution is off by default.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{tools: make(map[string]Tool)}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) Name() string { return FactoryName }

type config struct {
	Tool       string            `mapstructure:"tool"`
	Command    string            `mapstructure:"command"`
	Args       []string          `mapstructure:"args"`
	Env        map[string]string `mapstructure:"env"`
	Dir        string            `mapstructure:"dir"`
	Timeout    string            `mapstructure:"timeout"`
	PayloadKey string            `mapstructure:"payloadKey"`
}

func (f *Factory) Create(alias string, raw map[string]any, _ ports.Runtime, _ ports.Action) (ports.Action, error) {
	var cfg config
	if err := mapstructure.WeakDecode(raw, &cfg); err != nil {
		return nil, err
	}

	var tool Tool
	switch {
	case cfg.Tool != "":
		t, ok := f.tools[cfg.Tool]
		if !ok {
			return nil, fmt.Errorf("tool %q is not registered", cfg.Tool)
		}
		tool = t
	case cfg.Command != "":
		if !f.allowInline {
			return nil, errors.New("inline commands are disabled; use a registered tool")
		}
		tool = Tool{Name: alias, Command: cfg.Command, Args: cfg.Args}
	default:
		return nil, errors.New("either tool or command is required")
	}

	a := &action{
		alias: alias,
		tool:  tool,
		key:   cfg.PayloadKey,
		dir:   firstNonEmpty(cfg.Dir, tool.Dir, f.baseDir),
		env:   mergeEnv(tool.Env, cfg.Env),
	}
	if a.key == "" {
		a.key = alias
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}
		a.timeout = d
	}
	return a, nil
}

type action struct {
	alias   string
	tool    Tool
	key     string
	dir     string
	env     []string
	timeout time.Duration
}

func (a *action) Apply(ctx context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, a.tool.Command, a.tool.Args...)
	cmd.Dir = a.dir
	cmd.Env = append(append(cmd.Environ(), a.env...), Environment(fctx)...)
	cmd.Stdin = strings.NewReader(fctx.Fragment.Body)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	log := map[string]any{
		"command":  a.tool.Command,
		"duration": time.Since(started).String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return domain.FragmentResult{}, fmt.Errorf("%s: %w", a.tool.Command, ctx.Err())
	case errors.As(err, &exitErr):
		log["exitCode"] = exitErr.ExitCode()
		log["stderr"] = strings.TrimSpace(stderr.String())
		return domain.Failure(fctx.Fragment).WithLog(log), nil
	default:
		return domain.FragmentResult{}, fmt.Errorf("%s: %w", a.tool.Command, err)
	}

	log["exitCode"] = 0
	if s := strings.TrimSpace(stderr.String()); s != "" {
		log["stderr"] = s
	}
	return domain.Success(fctx.Fragment.WithPayload(a.key, parseOutput(stdout.String()))).WithLog(log), nil
}

// Environment renders the fragment context as TASKGRAPH_* variables.
// Maps are JSON encoded; params and headers use their first value.
func Environment(fctx domain.FragmentContext) []string {
	f := fctx.Fragment
	env := []string{
		EnvPrefix + "FRAGMENT_ID=" + f.ID,
		EnvPrefix + "FRAGMENT_TYPE=" + f.Type,
		EnvPrefix + "PAYLOAD=" + encode(f.Payload),
		EnvPrefix + "CONFIG=" + encode(f.Configuration),
		EnvPrefix + "PATH=" + fctx.Request.Path,
		EnvPrefix + "METHOD=" + fctx.Request.Method,
	}
	env = appendValues(env, EnvPrefix+"PARAM_", fctx.Request.Params)
	env = appendValues(env, EnvPrefix+"HEADER_", fctx.Request.Headers)
	return env
}

func appendValues(env []string, prefix string, values map[string][]string) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if v := values[name]; len(v) > 0 {
			env = append(env, prefix+envName(name)+"="+v[0])
		}
	}
	return env
}

func envName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}

func encode(v map[string]any) string {
	if len(v) == 0 {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// parseOutput decodes JSON-looking output and falls back to the trimmed text.
func parseOutput(out string) any {
	trimmed := strings.TrimSpace(out)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return trimmed
}

func mergeEnv(layers ...map[string]string) []string {
	merged := map[string]string{}
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
