package registry

import (
	"fmt"
	"strings"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
)

// ActionResolver resolves action aliases for node factories.
type ActionResolver interface {
	Resolve(alias string) (ports.Action, error)
	Options(alias string) (domain.ActionOptions, bool)
}

// Actions holds every configured action alias, built once.
// Build failures are kept per alias and returned when that alias is resolved,
// so one broken alias only affects the tasks that use it.
type Actions struct {
	options map[string]domain.ActionOptions
	built   map[string]ports.Action
	errs    map[string]error
}

// NewActions builds every alias in options with the factories of catalog.
func NewActions(catalog *Catalog, options map[string]domain.ActionOptions, rt ports.Runtime) *Actions {
	a := &Actions{
		options: make(map[string]domain.ActionOptions, len(options)),
		built:   make(map[string]ports.Action, len(options)),
		errs:    make(map[string]error),
	}
	for alias, opts := range options {
		a.options[alias] = opts
	}
	b := &actionBuilder{catalog: catalog, rt: rt, actions: a, visiting: map[string]bool{}}
	for _, alias := range sortedKeys(a.options) {
		_, _ = b.build(alias, nil)
	}
	return a
}

// Resolve returns the action built for alias.
func (a *Actions) Resolve(alias string) (ports.Action, error) {
	if err, ok := a.errs[alias]; ok {
		return nil, err
	}
	if action, ok := a.built[alias]; ok {
		return action, nil
	}
	return nil, &domain.ActionNotFoundError{Alias: alias}
}

// Options returns the configuration of alias.
func (a *Actions) Options(alias string) (domain.ActionOptions, bool) {
	opts, ok := a.options[alias]
	return opts, ok
}

// Aliases lists every configured alias, sorted.
func (a *Actions) Aliases() []string {
	return sortedKeys(a.options)
}

// Errors returns the build error of every broken alias.
func (a *Actions) Errors() map[string]error {
	out := make(map[string]error, len(a.errs))
	for k, v := range a.errs {
		out[k] = v
	}
	return out
}

type actionBuilder struct {
	catalog  *Catalog
	rt       ports.Runtime
	actions  *Actions
	visiting map[string]bool
}

func (b *actionBuilder) build(alias string, chain []string) (ports.Action, error) {
	if action, ok := b.actions.built[alias]; ok {
		return action, nil
	}
	if err, ok := b.actions.errs[alias]; ok {
		return nil, err
	}
	opts, ok := b.actions.options[alias]
	if !ok {
		return nil, &domain.ActionNotFoundError{Alias: alias}
	}
	chain = append(chain, alias)
	if b.visiting[alias] {
		return nil, b.fail(alias, fmt.Errorf("doAction cycle: %s", strings.Join(chain, " -> ")))
	}
	b.visiting[alias] = true
	defer delete(b.visiting, alias)

	factory, ok := b.catalog.ActionFactory(opts.Factory)
	if !ok {
		return nil, b.fail(alias, &domain.FactoryNotFoundError{Kind: "action", Factory: opts.Factory})
	}

	var wrapped ports.Action
	if opts.DoAction != "" {
		inner, err := b.build(opts.DoAction, chain)
		if err != nil {
			return nil, b.fail(alias, fmt.Errorf("doAction %q: %w", opts.DoAction, err))
		}
		wrapped = inner
	}

	action, err := factory.Create(alias, opts.Config, b.rt, wrapped)
	if err != nil {
		return nil, b.fail(alias, err)
	}
	b.actions.built[alias] = action
	return action, nil
}

func (b *actionBuilder) fail(alias string, err error) error {
	if existing, ok := b.actions.errs[alias]; ok {
		return existing
	}
	buildErr := &domain.ActionBuildError{Alias: alias, Err: err}
	b.actions.errs[alias] = buildErr
	return buildErr
}
