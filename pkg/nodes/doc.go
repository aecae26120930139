// Package nodes provides the built-in node factories: "action", which runs one
// configured action alias, and "subtasks", which runs nested graphs in parallel.
package nodes
