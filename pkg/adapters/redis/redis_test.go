package redis_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/taskgraph/internal/logging"
	"github.com/aretw0/taskgraph/pkg/adapters/redis"
	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	contract "github.com/aretw0/taskgraph/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestConsumer_Contract(t *testing.T) {
	_, client := setup(t)
	consumer := redis.NewConsumer(client, redis.WithMaxLen(10_000))

	contract.EventsConsumerContractTest(t, consumer, func(t *testing.T) int {
		n, err := consumer.Len(context.Background())
		require.NoError(t, err)
		return int(n)
	})
}

func TestConsumer_TrimsAndReadsBack(t *testing.T) {
	_, client := setup(t)
	consumer := redis.NewConsumer(client, redis.WithKey("events"), redis.WithMaxLen(2))
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		consumer.Accept(ctx, domain.ClientRequest{Path: "/p"}, domain.FragmentEvent{
			Fragment: domain.Fragment{ID: id},
			Status:   domain.EventSuccess,
		})
	}

	records, err := consumer.Records(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c", records[0].Event.Fragment.ID, "newest first")
	assert.Equal(t, "b", records[1].Event.Fragment.ID)
	assert.Equal(t, "/p", records[0].Request.Path)

	recent := consumer.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "c", recent[0].Fragment.ID)
}

func TestConsumer_TTL(t *testing.T) {
	mr, client := setup(t)
	consumer := redis.NewConsumer(client, redis.WithKey("events"), redis.WithTTL(time.Second))

	consumer.Accept(context.Background(), domain.ClientRequest{}, domain.FragmentEvent{Status: domain.EventSuccess})
	assert.True(t, mr.Exists("events"))

	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists("events"))
}

func TestConsumer_Publishes(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, "fragments")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	consumer := redis.NewConsumer(client, redis.WithChannel("fragments"))
	consumer.Accept(ctx, domain.ClientRequest{}, domain.FragmentEvent{Fragment: domain.Fragment{ID: "pub"}, Status: domain.EventSuccess})

	select {
	case msg := <-sub.Channel():
		assert.Contains(t, msg.Payload, `"id":"pub"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestConsumerFactory(t *testing.T) {
	mr, _ := setup(t)

	consumer, err := redis.NewConsumerFactory().Create(map[string]any{
		"addr": mr.Addr(), "key": "configured", "maxLen": "5", "ttl": "1m",
	}, ports.Runtime{Logger: logging.NewNop()})
	require.NoError(t, err)

	consumer.Accept(context.Background(), domain.ClientRequest{}, domain.FragmentEvent{Status: domain.EventSuccess})
	assert.True(t, mr.Exists("configured"))

	_, err = redis.NewConsumerFactory().Create(map[string]any{"addr": mr.Addr(), "ttl": "later"}, ports.Runtime{})
	assert.Error(t, err)
}

func TestCacheFactory(t *testing.T) {
	mr, client := setup(t)

	var calls atomic.Int32
	upstream := ports.ActionFunc(func(_ context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error) {
		calls.Add(1)
		return domain.Success(fctx.Fragment.WithPayload("user", map[string]any{"name": "ada"})), nil
	})

	action, err := redis.NewCacheFactory(redis.WithClient(client)).Create("user", map[string]any{
		"cacheKey": "user-{{.params.id}}",
		"ttl":      "30s",
		"prefix":   "test:",
	}, ports.Runtime{Logger: logging.NewNop()}, upstream)
	require.NoError(t, err)

	fctx := domain.FragmentContext{Request: domain.ClientRequest{Params: map[string][]string{"id": {"7"}}}}

	first, err := action.Apply(context.Background(), fctx)
	require.NoError(t, err)
	assert.Equal(t, false, first.NodeLog["cached"])
	assert.True(t, mr.Exists("test:user-7"))

	second, err := action.Apply(context.Background(), fctx)
	require.NoError(t, err)
	assert.Equal(t, true, second.NodeLog["cached"])
	assert.Equal(t, map[string]any{"name": "ada"}, second.Fragment.Payload["user"])
	assert.Equal(t, int32(1), calls.Load())

	mr.FastForward(time.Minute)
	_, err = action.Apply(context.Background(), fctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "expired entries are refreshed")
}

func TestCacheFactory_RedisDownFallsThrough(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	var calls atomic.Int32
	upstream := ports.ActionFunc(func(_ context.Context, fctx domain.FragmentContext) (domain.FragmentResult, error) {
		calls.Add(1)
		return domain.Success(fctx.Fragment.WithPayload("v", 1)), nil
	})
	action, err := redis.NewCacheFactory(redis.WithClient(client)).Create("v", map[string]any{"cacheKey": "k"}, ports.Runtime{Logger: logging.NewNop()}, upstream)
	require.NoError(t, err)

	res, err := action.Apply(context.Background(), domain.FragmentContext{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fragment.Payload["v"])
	assert.Equal(t, int32(1), calls.Load())
}
