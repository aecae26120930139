// Package http provides the "http" action, which calls an HTTP endpoint and
// stores the response in the fragment payload.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/aretw0/taskgraph/pkg/actions"
	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/aretw0/taskgraph/pkg/registry"
	"github.com/mitchellh/mapstructure"
)

const (
	FactoryName     = "http"
	maxResponseSize = 10 << 20
)

// ErrResponseTooLarge is returned when a response body exceeds 10 MiB.
var ErrResponseTooLarge = errors.New("response body too large")

// Plugin registers the http action factory.
var Plugin = registry.PluginFunc(func(c *registry.Catalog) {
	c.AddActionFactory(Factory{})
})

func init() {
	registry.Register(Plugin)
}

type config struct {
	Endpoint   string            `mapstructure:"endpoint"`
	Method     string            `mapstructure:"method"`
	Headers    map[string]string `mapstructure:"headers"`
	Body       string            `mapstructure:"body"`
	Timeout    string            `mapstructure:"timeout"`
	PayloadKey string            `mapstructure:"payloadKey"`
}

// Factory builds http actions.
//
// Endpoint, header values and body are templates rendered per fragment.
// A 2xx response takes the default transition and stores the decoded body under
// the payload key. Any other status takes the error transition and leaves the
// payload alone. Transport failures are returned as errors.
type Factory struct{}

func (Factory) Name() string { return FactoryName }

func (Factory) Create(alias string, raw map[string]any, rt ports.Runtime, _ ports.Action) (ports.Action, error) {
	var cfg config
	if err := mapstructure.WeakDecode(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	a := &action{
		alias:   alias,
		method:  strings.ToUpper(cfg.Method),
		key:     cfg.PayloadKey,
		client:  rt.Client(),
		headers: make(map[string]*actions.Template, len(cfg.Headers)),
	}
	if a.method == "" {
		a.method = nethttp.MethodGet
	}
	if a.key == "" {
		a.key = alias
	}
	var err error
	if a.endpoint, err = actions.ParseTemplate(alias+".endpoint", cfg.Endpoint); err != nil {
		return nil, err
	}
	if a.body, err = actions.ParseTemplate(alias+".body", cfg.Body); err != nil {
		return nil, err
	}
	for name, value := range cfg.Headers {
		if a.headers[name], err = actions.ParseTemplate(alias+".headers."+name, value); err != nil {
			return nil, err
		}
	}
	if cfg.Timeout != "" {
		if a.timeout, err = time.ParseDuration(cfg.Timeout); err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}
	}
	return a, nil
}

type action struct {
	alias    string
	method   string
	key      string
	endpoint *actions.Template
	body     *actions.Template
	headers  map[string]*actions.Template
	timeout  time.Duration
	client   *nethttp.Client
}

func (a *action) Apply(ctx context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req, err := a.request(ctx, fctx)
	if err != nil {
		return domain.FragmentResult{}, err
	}

	started := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return domain.FragmentResult{}, fmt.Errorf("%s %s: %w", a.method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return domain.FragmentResult{}, fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxResponseSize {
		return domain.FragmentResult{}, fmt.Errorf("%s %s: %w", a.method, req.URL.Redacted(), ErrResponseTooLarge)
	}

	log := map[string]any{
		"request":  map[string]any{"method": a.method, "url": req.URL.Redacted()},
		"response": map[string]any{"statusCode": resp.StatusCode, "duration": time.Since(started).String()},
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log["response"].(map[string]any)["body"] = string(data)
		return domain.Failure(fctx.Fragment).WithLog(log), nil
	}
	return domain.Success(fctx.Fragment.WithPayload(a.key, decode(resp.Header.Get("Content-Type"), data))).WithLog(log), nil
}

func (a *action) request(ctx context.Context, fctx domain.FragmentContext) (*nethttp.Request, error) {
	endpoint, err := a.endpoint.Render(fctx)
	if err != nil {
		return nil, fmt.Errorf("render endpoint: %w", err)
	}
	var body io.Reader
	if a.body.String() != "" {
		rendered, err := a.body.Render(fctx)
		if err != nil {
			return nil, fmt.Errorf("render body: %w", err)
		}
		body = strings.NewReader(rendered)
	}
	req, err := nethttp.NewRequestWithContext(ctx, a.method, endpoint, body)
	if err != nil {
		return nil, err
	}
	for name, tmpl := range a.headers {
		value, err := tmpl.Render(fctx)
		if err != nil {
			return nil, fmt.Errorf("render header %s: %w", name, err)
		}
		req.Header.Set(name, value)
	}
	return req, nil
}

// decode returns JSON bodies as data and anything else as a string.
func decode(contentType string, data []byte) any {
	trimmed := strings.TrimSpace(string(data))
	if strings.Contains(contentType, "json") ||
		(strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var v any
		if err := json.Unmarshal(data, &v); err == nil {
			return v
		}
	}
	return trimmed
}
