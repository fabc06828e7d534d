package quality

import (
	"context"
	"fmt"
	"strings"

	"mercator-hq/saturn/pkg/backends"
	"mercator-hq/saturn/pkg/complexity"
)

// Embedder computes a semantic similarity between a query and an answer.
// It is an optional collaborator: a nil Embedder skips the similarity gate
// entirely and never causes a validation failure.
type Embedder interface {
	// Similarity returns a score in [0,1] for how semantically close the
	// answer is to the query.
	Similarity(ctx context.Context, query, answer string) (float64, error)
}

// ValidatorConfig tunes the quality validator.
type ValidatorConfig struct {
	// DefaultThreshold is the pass threshold when no per-level entry or
	// per-call override applies. Default: 0.70.
	DefaultThreshold float64 `yaml:"default_threshold"`

	// LevelThresholds overrides the threshold per complexity level, keyed by
	// level name ("trivial" through "expert").
	LevelThresholds map[string]float64 `yaml:"level_thresholds"`

	// MinWords is the minimum answer length in words. Default: 1.
	MinWords int `yaml:"min_words"`

	// AlignmentFloor is the minimum alignment score. Failing it caps the
	// final score at the floor value. Default: 0.25.
	AlignmentFloor float64 `yaml:"alignment_floor"`

	// SemanticFloor is the minimum embedder similarity, checked only when an
	// embedder is configured. Default: 0.30.
	SemanticFloor float64 `yaml:"semantic_floor"`

	// Strict additionally reduces the score when the answer hedges.
	Strict bool `yaml:"strict"`

	// Production enables the full confidence estimator. When false the score
	// is a cheaper blend of the semantic and alignment heuristics.
	Production bool `yaml:"production"`
}

// applyDefaults fills zero-valued fields with defaults.
func (c *ValidatorConfig) applyDefaults() {
	if c.DefaultThreshold <= 0 {
		c.DefaultThreshold = 0.70
	}
	if c.LevelThresholds == nil {
		c.LevelThresholds = DefaultLevelThresholds()
	}
	if c.MinWords <= 0 {
		c.MinWords = 1
	}
	if c.AlignmentFloor <= 0 {
		c.AlignmentFloor = 0.25
	}
	if c.SemanticFloor <= 0 {
		c.SemanticFloor = 0.30
	}
}

// DefaultLevelThresholds returns the per-level pass thresholds. Easier
// queries accept lower scores; expert queries demand more.
func DefaultLevelThresholds() map[string]float64 {
	return map[string]float64{
		complexity.LevelTrivial.String():  0.55,
		complexity.LevelSimple.String():   0.60,
		complexity.LevelModerate.String(): 0.65,
		complexity.LevelHard.String():     0.70,
		complexity.LevelExpert.String():   0.75,
	}
}

// QualityResult is the verdict on one candidate answer. A failed result is
// ordinary data driving escalation, never an error.
type QualityResult struct {
	// Passed is true when every gate held and the score cleared the threshold.
	Passed bool `json:"passed"`

	// Score is the final quality score in [0,1].
	Score float64 `json:"score"`

	// Threshold is the resolved pass threshold that was applied.
	Threshold float64 `json:"threshold"`

	// Confidence is the underlying confidence analysis before reductions.
	Confidence float64 `json:"confidence"`

	// Method names the confidence combination path used.
	Method string `json:"method"`

	// Reason names the first failing gate, or "passed".
	Reason string `json:"reason"`

	// LengthOK, AlignmentOK, SemanticOK report the individual gates.
	// SemanticOK is true whenever no embedder is configured.
	LengthOK    bool `json:"length_ok"`
	AlignmentOK bool `json:"alignment_ok"`
	SemanticOK  bool `json:"semantic_ok"`

	// Alignment is the alignment analysis computed during validation.
	Alignment *AlignmentAnalysis `json:"alignment,omitempty"`
}

// ValidateInput carries one candidate answer and its context.
type ValidateInput struct {
	// Query and Answer are required.
	Query  string
	Answer string

	// Logprobs are the backend's token log-probabilities, if reported.
	Logprobs []backends.TokenLogprob

	// Difficulty is the query's complexity classification, if available.
	Difficulty *complexity.Result

	// ThresholdOverride, when non-nil, wins over the per-level table and the
	// default threshold.
	ThresholdOverride *float64

	// Backend, Temperature, and FinishReason feed confidence calibration.
	Backend      string
	Temperature  float64
	FinishReason string
}

// Validator gates candidate answers. Identical inputs always produce
// identical results; the embedder is the only collaborator that may consult
// external state.
type Validator struct {
	config    ValidatorConfig
	scorer    *Scorer
	estimator *Estimator
	embedder  Embedder
}

// NewValidator creates a validator. The embedder may be nil, in which case
// the semantic-similarity gate is skipped.
func NewValidator(config ValidatorConfig, scorer *Scorer, estimator *Estimator, embedder Embedder) *Validator {
	config.applyDefaults()
	if scorer == nil {
		scorer = NewScorer(AlignmentConfig{})
	}
	if estimator == nil {
		estimator = NewEstimator(EstimatorConfig{}, scorer)
	}
	return &Validator{
		config:    config,
		scorer:    scorer,
		estimator: estimator,
		embedder:  embedder,
	}
}

// Validate scores one answer against its query and reports whether it passes.
func (v *Validator) Validate(ctx context.Context, in ValidateInput) *QualityResult {
	threshold := v.resolveThreshold(in)

	level := complexity.LevelModerate
	if in.Difficulty != nil {
		level = in.Difficulty.Level
	}
	alignment := v.scorer.ScoreWithDifficulty(in.Query, in.Answer, level)

	var confidence float64
	var method string
	if v.config.Production {
		analysis := v.estimator.Estimate(EstimateInput{
			Answer:       in.Answer,
			Logprobs:     in.Logprobs,
			Query:        in.Query,
			Alignment:    alignment,
			Backend:      in.Backend,
			Temperature:  in.Temperature,
			FinishReason: in.FinishReason,
			Difficulty:   in.Difficulty,
		})
		confidence = analysis.FinalConfidence
		method = analysis.Method
	} else {
		semantic, _ := semanticScore(in.Answer)
		confidence = 0.5*semantic + 0.5*alignment.Score
		method = "blend"
	}

	result := &QualityResult{
		Threshold:  threshold,
		Confidence: confidence,
		Method:     method,
		Alignment:  alignment,
		SemanticOK: true,
	}

	answerWords := len(strings.Fields(in.Answer))
	result.LengthOK = answerWords >= v.config.MinWords
	result.AlignmentOK = alignment.Score >= v.config.AlignmentFloor

	semanticChecked := false
	if v.embedder != nil {
		if sim, err := v.embedder.Similarity(ctx, in.Query, in.Answer); err == nil {
			semanticChecked = true
			result.SemanticOK = sim >= v.config.SemanticFloor
		}
		// Embedder errors skip the gate rather than fail the answer.
	}

	score := confidence
	if answerWords < 10 && !alignment.Trivial {
		score -= 0.05
	}
	if v.config.Strict && containsHedging(in.Answer) {
		score -= 0.10
	}
	if !result.AlignmentOK && score > v.config.AlignmentFloor {
		score = v.config.AlignmentFloor
	}
	result.Score = clamp01(score)

	switch {
	case !result.LengthOK:
		result.Reason = fmt.Sprintf("answer too short: %d words, need %d", answerWords, v.config.MinWords)
	case !result.AlignmentOK:
		result.Reason = fmt.Sprintf("alignment %.2f below floor %.2f", alignment.Score, v.config.AlignmentFloor)
	case semanticChecked && !result.SemanticOK:
		result.Reason = fmt.Sprintf("semantic similarity below floor %.2f", v.config.SemanticFloor)
	case result.Score < threshold:
		result.Reason = fmt.Sprintf("score %.2f below threshold %.2f", result.Score, threshold)
	default:
		result.Passed = true
		result.Reason = "passed"
	}
	return result
}

// resolveThreshold picks the pass threshold: override, then the per-level
// table, then the default.
func (v *Validator) resolveThreshold(in ValidateInput) float64 {
	if in.ThresholdOverride != nil {
		return *in.ThresholdOverride
	}
	if in.Difficulty != nil {
		if t, ok := v.config.LevelThresholds[in.Difficulty.Level.String()]; ok {
			return t
		}
	}
	return v.config.DefaultThreshold
}

// containsHedging reports whether the answer contains a hedging phrase.
func containsHedging(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
