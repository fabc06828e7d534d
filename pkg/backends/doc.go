// Package backends defines the provider-agnostic interface for calling a
// single LLM backend tier, the shared request/response types (including
// token usage and per-token log-probabilities), the backend error taxonomy,
// and a composable retry wrapper with exponential backoff and jitter.
//
// The cascade orchestrator depends only on the Backend interface; concrete
// adapters (HTTP, local runtimes, mocks) are registered in an explicit
// Registry that is passed in at construction time. There is no global
// backend registry.
package backends
