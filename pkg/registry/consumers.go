package registry

import (
	"fmt"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
)

// NewConsumers builds the configured consumers, in configuration order.
// Any unknown factory or rejected configuration fails the whole set.
func NewConsumers(catalog *Catalog, options []domain.ConsumerOptions, rt ports.Runtime) ([]ports.EventsConsumer, error) {
	consumers := make([]ports.EventsConsumer, 0, len(options))
	for i, opts := range options {
		factory, ok := catalog.ConsumerFactory(opts.Factory)
		if !ok {
			return nil, &domain.FactoryNotFoundError{Kind: "consumer", Factory: opts.Factory}
		}
		consumer, err := factory.Create(opts.Config, rt)
		if err != nil {
			return nil, fmt.Errorf("consumer %d (%s): %w: %w", i, opts.Factory, domain.ErrConfiguration, err)
		}
		consumers = append(consumers, consumer)
	}
	return consumers, nil
}
