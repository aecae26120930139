/*
Package domain contains the core data model of the taskgraph engine.

It defines the values that flow through a task graph: fragments and the
request they belong to, the declarative node options a task is written in,
the results nodes produce, and the trace a walk leaves behind. The package is
kept free of I/O and third-party dependencies.

# Key Entities

  - Fragment: A unit of content with configuration, a body and a payload.
  - NodeOptions: The declarative description of a node and its outgoing transitions.
  - FragmentResult: What a node returns, including the transition label to follow.
  - FragmentEvent: The outcome of a walk, with the ordered TraceEntry log.
  - NodeMetadata: A read-only description of a compiled node, used for debugging.
*/
package domain
