package quality

import (
	"math"
	"sort"

	"mercator-hq/saturn/pkg/backends"
	"mercator-hq/saturn/pkg/complexity"
)

// ConfidenceAnalysis is the outcome of estimating confidence in one answer.
type ConfidenceAnalysis struct {
	// FinalConfidence is the calibrated confidence in [0,1].
	FinalConfidence float64 `json:"final_confidence"`

	// Components maps each contributing signal to its value before mixing
	// (logprob, semantic, alignment, difficulty_inverse, raw, calibrated).
	Components map[string]float64 `json:"components"`

	// Method names the combination path used:
	// "logprobs+alignment", "logprobs", "alignment", or "semantic".
	Method string `json:"method"`

	// AlignmentFloorApplied is true when poor alignment capped the result.
	AlignmentFloorApplied bool `json:"alignment_floor_applied"`
}

// EstimatorConfig tunes the confidence estimator.
type EstimatorConfig struct {
	// Calibrations is the per-backend calibration table. Must contain a
	// "default" entry; DefaultCalibrations() is used when nil.
	Calibrations map[string]Calibration

	// Alignment-floor ceilings, keyed by severity. When the alignment score
	// falls below FloorThreshold, confidence is capped: below 0.15 at
	// SevereCap, below 0.20 at ModerateCap, below FloorThreshold at MildCap.
	FloorThreshold float64 // default 0.25
	SevereCap      float64 // default 0.30
	ModerateCap    float64 // default 0.35
	MildCap        float64 // default 0.40
}

// applyDefaults fills zero-valued fields with defaults.
func (c *EstimatorConfig) applyDefaults() {
	if c.Calibrations == nil {
		c.Calibrations = DefaultCalibrations()
	}
	if c.FloorThreshold <= 0 {
		c.FloorThreshold = 0.25
	}
	if c.SevereCap <= 0 {
		c.SevereCap = 0.30
	}
	if c.ModerateCap <= 0 {
		c.ModerateCap = 0.35
	}
	if c.MildCap <= 0 {
		c.MildCap = 0.40
	}
}

// EstimateInput carries everything known about one candidate answer.
// Only Answer is required; every other field refines the estimate when present.
type EstimateInput struct {
	// Answer is the candidate answer text.
	Answer string

	// Logprobs are the backend's per-token log-probabilities, if reported.
	Logprobs []backends.TokenLogprob

	// Query is the original query; enables alignment-aware estimation.
	Query string

	// Alignment is a precomputed alignment analysis. When nil and Query is
	// set, the estimator computes one itself.
	Alignment *AlignmentAnalysis

	// Backend selects the calibration entry ("" uses the default entry).
	Backend string

	// Temperature is the sampling temperature used for generation.
	Temperature float64

	// FinishReason is the backend's finish reason, if known.
	FinishReason string

	// Difficulty is the query's complexity classification, if available.
	Difficulty *complexity.Result
}

// Estimator fuses token probabilities, semantic heuristics, alignment, and
// difficulty into one calibrated confidence. Stateless after construction
// and safe for concurrent use.
type Estimator struct {
	config EstimatorConfig
	scorer *Scorer
}

// NewEstimator creates a confidence estimator sharing the given alignment
// scorer. A nil scorer gets default alignment configuration.
func NewEstimator(config EstimatorConfig, scorer *Scorer) *Estimator {
	config.applyDefaults()
	if scorer == nil {
		scorer = NewScorer(AlignmentConfig{})
	}
	return &Estimator{config: config, scorer: scorer}
}

// Estimate produces a calibrated confidence analysis for one answer.
func (e *Estimator) Estimate(in EstimateInput) *ConfidenceAnalysis {
	components := make(map[string]float64)

	semantic, semanticParts := semanticScore(in.Answer)
	components["semantic"] = semantic
	for name, v := range semanticParts {
		components["semantic_"+name] = v
	}

	hasLogprobs := len(in.Logprobs) > 0
	var logprobScore float64
	if hasLogprobs {
		logprobScore = e.logprobScore(in.Logprobs, components)
		components["logprob"] = logprobScore
	}

	alignment := in.Alignment
	if alignment == nil && in.Query != "" {
		level := complexity.LevelModerate
		if in.Difficulty != nil {
			level = in.Difficulty.Level
		}
		alignment = e.scorer.ScoreWithDifficulty(in.Query, in.Answer, level)
	}
	hasAlignment := alignment != nil
	if hasAlignment {
		components["alignment"] = alignment.Score
	}

	difficultyInverse := 0.5
	if in.Difficulty != nil {
		difficultyInverse = 1 - float64(in.Difficulty.Level)/float64(complexity.LevelExpert)
	}
	components["difficulty_inverse"] = difficultyInverse

	// Combine by priority.
	var raw float64
	var method string
	switch {
	case hasLogprobs && hasAlignment:
		raw = 0.5*logprobScore + 0.2*semantic + 0.2*alignment.Score + 0.1*difficultyInverse
		method = "logprobs+alignment"
	case hasLogprobs:
		raw = 0.75*logprobScore + 0.25*semantic
		method = "logprobs"
	case hasAlignment:
		raw = 0.4*semantic + 0.4*alignment.Score + 0.2*difficultyInverse
		method = "alignment"
	default:
		raw = semantic
		method = "semantic"
	}
	components["raw"] = raw

	cal := lookupCalibration(e.config.Calibrations, in.Backend)
	calibrated := cal.apply(raw, in.Temperature, in.FinishReason)
	components["calibrated"] = calibrated

	analysis := &ConfidenceAnalysis{
		Components: components,
		Method:     method,
	}

	// Alignment floor: fluent but off-topic answers must not reach high
	// confidence. Cap severity scales with how poor alignment is.
	if hasAlignment && alignment.Score < e.config.FloorThreshold {
		ceiling := e.config.MildCap
		switch {
		case alignment.Score < 0.15:
			ceiling = e.config.SevereCap
		case alignment.Score < 0.20:
			ceiling = e.config.ModerateCap
		}
		if calibrated > ceiling {
			calibrated = ceiling
		}
		analysis.AlignmentFloorApplied = true
	}

	analysis.FinalConfidence = clamp01(calibrated)
	return analysis
}

// logprobScore combines geometric mean, top-80% harmonic mean, minimum
// probability, and normalized-entropy consistency with fixed weights.
func (e *Estimator) logprobScore(logprobs []backends.TokenLogprob, components map[string]float64) float64 {
	n := len(logprobs)
	probs := make([]float64, n)
	sumLog := 0.0
	sumNegLog := 0.0
	minProb := 1.0
	for i, lp := range logprobs {
		p := math.Exp(lp.Logprob)
		if p > 1 {
			p = 1
		}
		if p < 1e-10 {
			p = 1e-10
		}
		probs[i] = p
		sumLog += math.Log(p)
		sumNegLog += -math.Log(p)
		if p < minProb {
			minProb = p
		}
	}

	geoMean := math.Exp(sumLog / float64(n))

	// Harmonic mean of the top 80% most probable tokens: robust to a few
	// hard tokens while still punishing widespread uncertainty.
	sorted := make([]float64, n)
	copy(sorted, probs)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	top := (n*8 + 9) / 10
	if top < 1 {
		top = 1
	}
	harmSum := 0.0
	for _, p := range sorted[:top] {
		harmSum += 1 / p
	}
	harmMean := float64(top) / harmSum

	// Consistency from normalized mean surprisal: 0 surprisal = 1.0,
	// 3 nats mean surprisal or worse = 0.0.
	meanSurprisal := sumNegLog / float64(n)
	consistency := clamp01(1 - meanSurprisal/3.0)

	components["logprob_geo_mean"] = geoMean
	components["logprob_harmonic"] = harmMean
	components["logprob_min"] = minProb
	components["logprob_consistency"] = consistency

	return 0.40*geoMean + 0.30*harmMean + 0.15*minProb + 0.15*consistency
}
