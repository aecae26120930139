/*
Package taskgraph is a declarative task-graph execution engine.

A configuration describes named tasks as directed graphs of nodes joined by
labeled transitions. Each fragment of content names the task that processes it
in its configuration ("data-task"). The engine compiles that task into a graph
of nodes, walks the graph from its root and follows the transition every node
returns until a node has no edge for it. The result is the transformed fragment
plus a trace of every node evaluated, which is handed to the configured
consumers.

# Concept

Nodes either wrap one action ("action") or run nested graphs as a parallel
group and join them ("subtasks"). Actions are created by named factories, for
example "inline-body", "http", "process" or "in-memory-cache", and may wrap
another action through doAction. Every factory is contributed by a plugin that
registers itself at init, the way database/sql drivers do; this package imports
the built-in plugins.

Failures never abort a walk. An action error or panic becomes a trace entry and
routes through the reserved "_error" transition; when no such edge exists the
walk ends and the event status is "failure".

# Usage

	options := dsl.New().
		Define("greet", "inline-body", map[string]any{"body": "hello {{.params.name}}"}).
		Task("welcome", dsl.Action("greet")).
		Build()

	engine, err := taskgraph.New(options)
	if err != nil {
		log.Fatal(err)
	}

	fragment := domain.Fragment{
		ID:            "f1",
		Configuration: map[string]any{domain.TaskKey: "welcome"},
	}
	request := domain.ClientRequest{Params: map[string][]string{"name": {"ada"}}}

	event, err := engine.Process(context.Background(), request, fragment)
	if err != nil {
		log.Fatal(err) // the task could not be compiled
	}
	fmt.Println(event.Fragment.Body) // hello ada

Configuration files are loaded with internal/config through the taskgraph
command; library users usually build domain.Options with pkg/dsl or decode
their own maps with dsl.DecodeOptions.
*/
package taskgraph
