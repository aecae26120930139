package consumer_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/taskgraph/pkg/consumer"
	"github.com/aretw0/taskgraph/pkg/domain"
	contract "github.com/aretw0/taskgraph/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	requests []domain.ClientRequest
	events   []domain.FragmentEvent
}

func (r *recorder) Accept(_ context.Context, request domain.ClientRequest, event domain.FragmentEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, request)
	r.events = append(r.events, event)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestRedactor_Contract(t *testing.T) {
	rec := &recorder{}
	c, err := consumer.Redact(rec, "(?i)password")
	require.NoError(t, err)

	contract.EventsConsumerContractTest(t, c, func(*testing.T) int { return rec.count() })
}

func TestRedactor_Masks(t *testing.T) {
	rec := &recorder{}
	c, err := consumer.Redact(rec, "(?i)password", "^token$", "(?i)^authorization$")
	require.NoError(t, err)

	payload := map[string]any{
		"user":  map[string]any{"name": "ada", "Password": "hunter2"},
		"token": "abc",
		"items": []any{map[string]any{"token": "x", "id": 1}},
	}
	event := domain.FragmentEvent{
		Fragment: domain.Fragment{ID: "f", Payload: payload},
		Log: []domain.TraceEntry{
			{Alias: "login", NodeLog: map[string]any{"request": map[string]any{"password": "p"}}},
		},
	}
	request := domain.ClientRequest{Headers: map[string][]string{"Authorization": {"Bearer x"}, "Accept": {"*/*"}}}

	c.Accept(context.Background(), request, event)

	require.Equal(t, 1, rec.count())
	got := rec.events[0]
	assert.Equal(t, consumer.Mask, got.Fragment.Payload["user"].(map[string]any)["Password"])
	assert.Equal(t, "ada", got.Fragment.Payload["user"].(map[string]any)["name"])
	assert.Equal(t, consumer.Mask, got.Fragment.Payload["token"])
	assert.Equal(t, consumer.Mask, got.Fragment.Payload["items"].([]any)[0].(map[string]any)["token"])
	assert.Equal(t, consumer.Mask, got.Log[0].NodeLog["request"].(map[string]any)["password"])
	assert.Equal(t, []string{consumer.Mask}, rec.requests[0].Headers["Authorization"])
	assert.Equal(t, []string{"*/*"}, rec.requests[0].Headers["Accept"])

	// The original event is untouched.
	assert.Equal(t, "hunter2", payload["user"].(map[string]any)["Password"])
	assert.Equal(t, "p", event.Log[0].NodeLog["request"].(map[string]any)["password"])
	assert.Equal(t, []string{"Bearer x"}, request.Headers["Authorization"])
}

func TestRedact_InvalidPattern(t *testing.T) {
	_, err := consumer.Redact(&recorder{}, "(")
	assert.Error(t, err)
}
