package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/taskgraph/pkg/graph"
	"github.com/aretw0/taskgraph/pkg/registry"
)

// Engine is what the validator needs from taskgraph.Engine.
type Engine interface {
	Tasks() []string
	Task(name string) (*graph.Task, error)
	Actions() *registry.Actions
}

// Report is the outcome of validating a configuration.
type Report struct {
	Tasks  []string
	Nodes  int
	Errors map[string]error
	Unused []string
}

// Valid reports whether no task and no action failed.
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// Err joins every error, sorted by subject, or returns nil.
func (r *Report) Err() error {
	if r.Valid() {
		return nil
	}
	subjects := make([]string, 0, len(r.Errors))
	for s := range r.Errors {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	errs := make([]error, 0, len(subjects))
	for _, s := range subjects {
		errs = append(errs, fmt.Errorf("%s: %w", s, r.Errors[s]))
	}
	return errors.Join(errs...)
}

// String summarizes the report for terminals.
func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d tasks, %d nodes", len(r.Tasks), r.Nodes)
	if len(r.Unused) > 0 {
		fmt.Fprintf(&sb, ", unused actions: %s", strings.Join(r.Unused, ", "))
	}
	if err := r.Err(); err != nil {
		fmt.Fprintf(&sb, "\n%d errors:\n- %s", len(r.Errors), strings.ReplaceAll(err.Error(), "\n", "\n- "))
	}
	return sb.String()
}

// Validate compiles every task and reports broken tasks and actions.
// Broken actions are reported even when no task references them.
func Validate(e Engine) *Report {
	r := &Report{Tasks: e.Tasks(), Errors: make(map[string]error)}
	used := make(map[string]bool)

	for _, name := range r.Tasks {
		task, err := e.Task(name)
		if err != nil {
			r.Errors["task "+name] = err
			continue
		}
		r.Nodes += len(task.Metadata)
		for _, meta := range task.Metadata {
			used[meta.Alias] = true
		}
	}

	actions := e.Actions()
	for alias, err := range actions.Errors() {
		r.Errors["action "+alias] = err
	}
	for _, alias := range actions.Aliases() {
		if !used[alias] && !wrapped(actions, alias, used) {
			r.Unused = append(r.Unused, alias)
		}
	}
	return r
}

// wrapped reports whether alias is the doAction of a used action.
func wrapped(actions *registry.Actions, alias string, used map[string]bool) bool {
	for other := range used {
		for seen := map[string]bool{}; !seen[other]; {
			seen[other] = true
			opts, ok := actions.Options(other)
			if !ok || opts.DoAction == "" {
				break
			}
			if opts.DoAction == alias {
				return true
			}
			other = opts.DoAction
		}
	}
	return false
}
