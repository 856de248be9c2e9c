// Package server hosts the Fiber HTTP service and the request middleware chain
// that turns inbound requests into validated cache keys for the proxy handler.
// Every request gets an X-Request-ID; unsupported methods and malformed status
// codes are rejected here and never reach the retrieval coordinator. Paths under
// /-/ are reserved for diagnostics and bypass key validation. Keep exports
// narrow and accept explicit dependencies.
package server
