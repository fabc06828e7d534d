// Package cascade runs queries through a cost-ordered sequence of model
// tiers. The cheapest tier drafts an answer; a quality gate decides whether
// the draft stands or the query escalates to a stronger, more expensive
// tier. The goal is to pay verifier prices only for the queries that need
// them.
//
// The orchestrator is a pure pipeline over its tier list: it holds no
// mutable state across calls and is safe for concurrent use. Retry, rate
// limiting, and caching are composed around it by the caller, never inside.
package cascade
