package tests

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// EventsConsumerContractTest verifies that a consumer complies with ports.EventsConsumer.
// delivered must report how many events the consumer has recorded so far.
func EventsConsumerContractTest(t *testing.T, consumer ports.EventsConsumer, delivered func(t *testing.T) int) {
	t.Helper()
	require.NotNil(t, consumer)

	request := domain.ClientRequest{Path: "/contract", Method: "GET"}

	t.Run("Accept_EveryStatus", func(t *testing.T) {
		before := delivered(t)
		for i, status := range []domain.EventStatus{domain.EventSuccess, domain.EventFailure, domain.EventUnprocessed} {
			consumer.Accept(context.Background(), request, sampleEvent(fmt.Sprintf("status-%d", i), status))
		}
		assert.Equal(t, before+3, delivered(t))
	})

	t.Run("Accept_Concurrent", func(t *testing.T) {
		const n = 20
		before := delivered(t)

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				consumer.Accept(context.Background(), request, sampleEvent(fmt.Sprintf("concurrent-%d", i), domain.EventSuccess))
			}(i)
		}
		wg.Wait()

		assert.Equal(t, before+n, delivered(t))
	})

	t.Run("Accept_EmptyLog", func(t *testing.T) {
		before := delivered(t)
		consumer.Accept(context.Background(), request, domain.FragmentEvent{
			Fragment: domain.Fragment{ID: "empty"},
			Status:   domain.EventUnprocessed,
		})
		assert.Equal(t, before+1, delivered(t))
	})
}

func sampleEvent(id string, status domain.EventStatus) domain.FragmentEvent {
	entryStatus := domain.NodeStatusSuccess
	transition := domain.DefaultTransition
	if status == domain.EventFailure {
		entryStatus = domain.NodeStatusError
		transition = domain.ErrorTransition
	}
	return domain.FragmentEvent{
		Task:     "contract",
		Fragment: domain.Fragment{ID: id, Type: "snippet", Body: "body"},
		Status:   status,
		Log: []domain.TraceEntry{{
			Task:       "contract",
			NodeID:     "node-" + id,
			Alias:      "action",
			Status:     entryStatus,
			Transition: transition,
		}},
	}
}
