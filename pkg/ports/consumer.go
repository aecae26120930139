package ports

import (
	"context"

	"github.com/aretw0/taskgraph/pkg/domain"
)

// EventsConsumer receives the outcome of every walk.
// Accept is called once per fragment walk and may be called concurrently.
type EventsConsumer interface {
	Accept(ctx context.Context, request domain.ClientRequest, event domain.FragmentEvent)
}

// ConsumerFactory builds consumers of one kind.
type ConsumerFactory interface {
	Name() string
	Create(config map[string]any, rt Runtime) (EventsConsumer, error)
}

// EventLister is implemented by consumers that keep recent events for inspection.
type EventLister interface {
	Recent(limit int) []domain.FragmentEvent
}
