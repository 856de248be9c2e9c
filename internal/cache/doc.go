// Package cache defines the disk-backed store that maps a 3-digit status code
// to a single file under the configured cache root (<root>/<code>.jpg). The
// store exposes get/put/delete primitives with safe semantics (temp file +
// rename) and typed errors (ErrNotFound, *IOError) so the retrieval layer can
// branch on outcomes instead of inspecting raw filesystem errors.
package cache
