// Package retrieval composes the cache store and the origin fetcher into the
// three client-facing operations: read-through Read, explicit Write and Remove.
// It never returns raw errors to callers; every outcome is a Status.
package retrieval
