// Package redis provides Redis-backed plugins: the "redis-cache" action, which
// caches payload entries of a wrapped action, and the "redis" fragment events
// consumer, which keeps a bounded list of recent events and can publish them.
package redis
