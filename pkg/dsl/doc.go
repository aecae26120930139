/*
Package dsl provides a Go DSL for programmatically constructing task graphs,
and the decoder that turns loosely typed maps (from YAML, JSON or Go literals)
into domain options.

Example usage:

	package main

	import (
		"github.com/aretw0/taskgraph/pkg/dsl"
	)

	func main() {
		options := dsl.New().
			Define("fetch", "http", map[string]any{"endpoint": "http://catalog/items"}).
			Define("fallback", "inline-payload", map[string]any{"alias": "fetch", "payload": map[string]any{}}).
			Task("items", dsl.Action("fetch").Error(dsl.Action("fallback"))).
			Build()

		// options can be passed to taskgraph.New(options)
		_ = options
	}

The decoder accepts the shorthand forms used in configuration files:

	action: fetch            -> node: {factory: action, config: {action: fetch}}
	subtasks: [...]          -> node: {factory: subtasks, config: {subtasks: [...]}}
	onTransitions: {...}     -> on: {...}
*/
package dsl
