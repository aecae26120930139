package domain

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the root of every error caused by an invalid task or action definition.
var ErrConfiguration = errors.New("invalid graph configuration")

// ErrTaskNotFound is returned when a task is requested by name and is not defined.
var ErrTaskNotFound = errors.New("task not found")

// ErrWalkTimeout is recorded when a walk deadline expires before a node finishes.
var ErrWalkTimeout = errors.New("walk deadline exceeded")

// ActionNotFoundError is returned when a node refers to an undefined action alias.
type ActionNotFoundError struct {
	Alias string
}

func (e *ActionNotFoundError) Error() string {
	return fmt.Sprintf("action %q is not defined", e.Alias)
}

func (e *ActionNotFoundError) Unwrap() error { return ErrConfiguration }

// FactoryNotFoundError is returned when a definition names an unregistered factory.
// Kind is one of "action", "node" or "consumer".
type FactoryNotFoundError struct {
	Kind    string
	Factory string
}

func (e *FactoryNotFoundError) Error() string {
	return fmt.Sprintf("%s factory %q is not registered", e.Kind, e.Factory)
}

func (e *FactoryNotFoundError) Unwrap() error { return ErrConfiguration }

// ActionBuildError is returned when an action factory rejects its configuration.
type ActionBuildError struct {
	Alias string
	Err   error
}

func (e *ActionBuildError) Error() string {
	return fmt.Sprintf("action %q: %v", e.Alias, e.Err)
}

func (e *ActionBuildError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

// GraphError reports a structural problem in a task graph.
type GraphError struct {
	Task   string
	Reason string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("task %q: %s", e.Task, e.Reason)
}

func (e *GraphError) Unwrap() error { return ErrConfiguration }
