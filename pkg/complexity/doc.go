// Package complexity buckets a query into a discrete difficulty level
// (trivial, simple, moderate, hard, expert) from lexical and structural
// signals: fixed trivial patterns, a trivial-concept word list, a
// multi-domain technical-term gazetteer, tiered keyword lists, and
// code/multi-part structure detection.
//
// Classification is deterministic and purely heuristic; confidence values
// are fixed per-rule constants, not learned probabilities. The resulting
// level selects quality-validation thresholds and acts as a prior for
// confidence estimation downstream.
package complexity
