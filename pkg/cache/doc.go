// Package cache stores cascade results keyed by query and tier
// configuration. The cascade core stays cache-agnostic; callers compose a
// store around the orchestrator with Wrap.
//
// Two stores are provided: an in-memory store with TTL expiry and LRU
// eviction for single-process use, and a SQLite-backed store that survives
// restarts.
package cache
