// Package quality estimates how good a candidate answer is without ground
// truth. It combines three cooperating pieces:
//
//   - Scorer measures query/answer alignment from keyword and synonym
//     coverage, length fit, directness, explanation depth, and answer shape.
//   - Estimator fuses token log-probabilities (when the backend reports
//     them), response-only semantic heuristics, alignment, and query
//     difficulty into one confidence value, calibrated per backend and
//     sampling temperature, with a hard ceiling when alignment is poor.
//   - Validator applies complexity-aware thresholds to those signals and
//     returns a pass/fail verdict with diagnostics.
//
// Quality-gate failures are values, never errors: a failed validation drives
// escalation in the cascade, not an exception path. All numeric constants in
// this package are empirically tuned defaults exposed through the config
// structs, not protocol requirements.
package quality
