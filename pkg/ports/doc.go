/*
Package ports defines the driven ports (interfaces) of the taskgraph engine.

These interfaces decouple the graph runtime from the plugins that do the real
work, so actions and consumers can be provided by any package that registers a
factory for them.

# Key Interfaces

  - Action: The operation a single node performs on a fragment.
  - ActionFactory: Builds an Action from an alias, its configuration and an optional wrapped action.
  - EventsConsumer: Receives every finished FragmentEvent.
  - ConsumerFactory: Builds an EventsConsumer from its configuration.
*/
package ports
