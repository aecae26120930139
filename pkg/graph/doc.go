// Package graph holds the compiled, immutable form of a task: nodes joined by
// labelled transitions, plus the contracts node factories implement to build them.
package graph
