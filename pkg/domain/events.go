package domain

import (
	"context"
	"time"
)

// NodeStatus is the outcome of a single node evaluation.
type NodeStatus string

const (
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusError   NodeStatus = "error"
	NodeStatusTimeout NodeStatus = "timeout"
)

// EventStatus is the outcome of a whole walk.
type EventStatus string

const (
	EventUnprocessed EventStatus = "unprocessed"
	EventSuccess     EventStatus = "success"
	EventFailure     EventStatus = "failure"
)

// TraceEntry records one node evaluation during a walk.
type TraceEntry struct {
	Task       string         `json:"task"`
	NodeID     string         `json:"nodeId"`
	Alias      string         `json:"alias"`
	Status     NodeStatus     `json:"status"`
	Transition string         `json:"transition,omitempty"`
	Started    time.Time      `json:"started"`
	Duration   time.Duration  `json:"duration"`
	Error      string         `json:"error,omitempty"`
	NodeLog    map[string]any `json:"nodeLog,omitempty"`
}

// FragmentEvent is the result of walking a fragment through its task graph.
type FragmentEvent struct {
	Task     string        `json:"task,omitempty"`
	Fragment Fragment      `json:"fragment"`
	Status   EventStatus   `json:"status"`
	Log      []TraceEntry  `json:"log"`
	Duration time.Duration `json:"duration"`
}

// NodeEvent is emitted when the engine enters a node.
type NodeEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Task      string    `json:"task"`
	NodeID    string    `json:"nodeId"`
	Alias     string    `json:"alias"`
	Kind      NodeKind  `json:"kind"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run on the walking goroutine and must be safe for concurrent walks.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *TraceEntry)
	OnWalkDone  func(context.Context, *FragmentEvent)
}
