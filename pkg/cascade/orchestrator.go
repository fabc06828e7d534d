package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mercator-hq/saturn/pkg/backends"
	"mercator-hq/saturn/pkg/complexity"
	"mercator-hq/saturn/pkg/quality"
)

// TierError wraps a backend failure with the tier that produced it.
// Tier errors abort the pipeline; the orchestrator never retries internally.
type TierError struct {
	TierID  string
	Backend string
	Err     error
}

func (e *TierError) Error() string {
	return fmt.Sprintf("tier %q (backend %q): %v", e.TierID, e.Backend, e.Err)
}

func (e *TierError) Unwrap() error { return e.Err }

// Metrics receives cascade telemetry. Implementations must be safe for
// concurrent use. A nil Metrics disables recording.
type Metrics interface {
	// RecordTierCall records one completed tier round-trip.
	RecordTierCall(tier, backend, status string, latency time.Duration, tokens int, cost float64)

	// RecordCascade records one finished cascade with its outcome
	// ("accepted", "escalated", "error") and realized savings.
	RecordCascade(outcome string, savings float64)
}

// Options configures the orchestrator. Tiers and Registry are required.
type Options struct {
	// Tiers is the cascade's tier list in any order; the orchestrator sorts
	// by ascending cost. Must be non-empty.
	Tiers []Tier

	// Registry resolves tier backend names to live backends.
	Registry *backends.Registry

	// Validator gates draft answers. Nil falls back to a default validator.
	Validator *quality.Validator

	// Classifier assesses query difficulty before routing. Nil falls back to
	// a default classifier.
	Classifier *complexity.Classifier

	// Minimal switches the draft gate to a bare length heuristic, skipping
	// the validator entirely. Useful for latency-critical callers.
	Minimal bool

	// MinimalMinWords is the length the minimal heuristic requires.
	// Default: 3.
	MinimalMinWords int

	// Metrics receives telemetry. Nil disables recording.
	Metrics Metrics

	// Logger is the structured logger. Nil uses slog.Default().
	Logger *slog.Logger
}

// TierResult records one tier's contribution to a cascade.
type TierResult struct {
	// TierID, Backend, and Model identify the tier.
	TierID  string `json:"tier_id"`
	Backend string `json:"backend"`
	Model   string `json:"model"`

	// Content is the tier's full answer.
	Content string `json:"content"`

	// Usage is the reported or estimated token usage.
	Usage backends.TokenUsage `json:"usage"`

	// Cost is the tier's realized cost in dollars.
	Cost float64 `json:"cost"`

	// Latency is the tier's wall-clock round-trip time.
	Latency time.Duration `json:"latency_ms"`

	// Quality is the gate verdict on this tier's answer. Nil for the final
	// verifier tier, whose answer is accepted without gating.
	Quality *quality.QualityResult `json:"quality,omitempty"`

	// finishReason is the backend finish reason, kept for gating streamed answers.
	finishReason string
}

// Result is the aggregate outcome of one cascade.
type Result struct {
	// RequestID uniquely identifies this cascade run.
	RequestID string `json:"request_id"`

	// Query is the original query text.
	Query string `json:"query"`

	// Content is the final answer.
	Content string `json:"content"`

	// FinalTier is the ID of the tier whose answer was used.
	FinalTier string `json:"final_tier"`

	// DraftAccepted is true when the cheapest tier's answer stood.
	DraftAccepted bool `json:"draft_accepted"`

	// Cascaded is true when the query escalated past the draft tier.
	Cascaded bool `json:"cascaded"`

	// Complexity is the query's difficulty assessment.
	Complexity *complexity.Result `json:"complexity,omitempty"`

	// Tiers lists every tier that ran, in call order.
	Tiers []TierResult `json:"tiers"`

	// TotalCost sums the per-tier costs.
	TotalCost float64 `json:"total_cost"`

	// Savings is what running everything on the most expensive tier would
	// have cost, minus what this cascade actually cost. Never negative.
	Savings float64 `json:"savings"`

	// TotalLatency is the end-to-end wall-clock duration.
	TotalLatency time.Duration `json:"total_latency_ms"`
}

// Orchestrator routes queries through cost-ordered tiers. It is immutable
// after construction and safe for concurrent use.
type Orchestrator struct {
	tiers           []Tier
	registry        *backends.Registry
	validator       *quality.Validator
	classifier      *complexity.Classifier
	minimal         bool
	minimalMinWords int
	metrics         Metrics
	logger          *slog.Logger
}

// New creates an orchestrator. Configuration errors (an empty tier list,
// invalid tier fields, unknown backend names) fail here, never at call time.
func New(opts Options) (*Orchestrator, error) {
	if err := validateTiers(opts.Tiers); err != nil {
		return nil, err
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("cascade requires a backend registry")
	}
	for _, t := range opts.Tiers {
		if _, err := opts.Registry.Get(t.Backend); err != nil {
			return nil, fmt.Errorf("tier %q: %w", t.ID, err)
		}
	}
	if opts.Validator == nil {
		opts.Validator = quality.NewValidator(quality.ValidatorConfig{Production: true}, nil, nil, nil)
	}
	if opts.Classifier == nil {
		opts.Classifier = complexity.NewClassifier(complexity.Config{})
	}
	if opts.MinimalMinWords <= 0 {
		opts.MinimalMinWords = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		tiers:           sortTiers(opts.Tiers),
		registry:        opts.Registry,
		validator:       opts.Validator,
		classifier:      opts.Classifier,
		minimal:         opts.Minimal,
		minimalMinWords: opts.MinimalMinWords,
		metrics:         opts.Metrics,
		logger:          opts.Logger.With("component", "cascade"),
	}, nil
}

// Tiers returns the cost-ordered tier list.
func (o *Orchestrator) Tiers() []Tier {
	tiers := make([]Tier, len(o.tiers))
	copy(tiers, o.tiers)
	return tiers
}

// Execute runs one query through the cascade and returns the aggregate
// result. Backend failures abort the run and are returned wrapped in a
// TierError.
func (o *Orchestrator) Execute(ctx context.Context, query string) (*Result, error) {
	start := time.Now()
	result := &Result{
		RequestID:  uuid.NewString(),
		Query:      query,
		Complexity: o.classifier.Classify(query),
	}
	logger := o.logger.With("request_id", result.RequestID)
	logger.Debug("classified query",
		"level", result.Complexity.Level.String(),
		"confidence", result.Complexity.Confidence)

	for i, tier := range o.tiers {
		resp, err := o.callTier(ctx, tier, query)
		if err != nil {
			o.recordCascade("error", 0)
			return nil, err
		}
		tr := o.tierResult(tier, resp)
		result.TotalCost += tr.Cost

		// The last tier's answer stands unconditionally; there is nothing
		// left to escalate to.
		if i == len(o.tiers)-1 {
			result.Tiers = append(result.Tiers, tr)
			result.Content = tr.Content
			result.FinalTier = tier.ID
			result.DraftAccepted = i == 0
			break
		}

		verdict := o.gate(ctx, tier, query, resp, result.Complexity)
		tr.Quality = verdict
		result.Tiers = append(result.Tiers, tr)

		if verdict.Passed {
			result.Content = tr.Content
			result.FinalTier = tier.ID
			result.DraftAccepted = i == 0
			break
		}
		result.Cascaded = true
		logger.Info("escalating",
			"tier", tier.ID,
			"reason", verdict.Reason,
			"score", verdict.Score)
	}

	result.Savings = o.savings(result)
	result.TotalLatency = time.Since(start)

	outcome := "accepted"
	if result.Cascaded {
		outcome = "escalated"
	}
	o.recordCascade(outcome, result.Savings)
	logger.Info("cascade complete",
		"final_tier", result.FinalTier,
		"draft_accepted", result.DraftAccepted,
		"total_cost", result.TotalCost,
		"savings", result.Savings,
		"latency", result.TotalLatency)
	return result, nil
}

// callTier performs one backend round-trip for a tier.
func (o *Orchestrator) callTier(ctx context.Context, tier Tier, query string) (*backends.GenerateResponse, error) {
	backend, err := o.registry.Get(tier.Backend)
	if err != nil {
		return nil, &TierError{TierID: tier.ID, Backend: tier.Backend, Err: err}
	}
	resp, err := backend.Generate(ctx, &backends.GenerateRequest{
		Model:       tier.Model,
		Messages:    backends.UserMessage(query),
		Temperature: tier.Temperature,
		MaxTokens:   tier.MaxTokens,
		Logprobs:    tier.Logprobs,
	})
	if err != nil {
		o.recordTierCall(tier, "error", 0, 0, 0)
		return nil, &TierError{TierID: tier.ID, Backend: tier.Backend, Err: err}
	}
	cost := tierCost(tier, resp.Usage)
	o.recordTierCall(tier, "success", resp.Latency, resp.Usage.TotalTokens, cost)
	return resp, nil
}

// tierResult converts a backend response into a TierResult.
func (o *Orchestrator) tierResult(tier Tier, resp *backends.GenerateResponse) TierResult {
	return TierResult{
		TierID:  tier.ID,
		Backend: tier.Backend,
		Model:   tier.Model,
		Content: resp.Content,
		Usage:   resp.Usage,
		Cost:    tierCost(tier, resp.Usage),
		Latency: resp.Latency,
	}
}

// gate decides whether a tier's answer stands.
func (o *Orchestrator) gate(ctx context.Context, tier Tier, query string, resp *backends.GenerateResponse, difficulty *complexity.Result) *quality.QualityResult {
	if o.minimal {
		words := len(strings.Fields(resp.Content))
		passed := words >= o.minimalMinWords
		reason := "passed"
		if !passed {
			reason = fmt.Sprintf("answer too short: %d words, need %d", words, o.minimalMinWords)
		}
		return &quality.QualityResult{
			Passed:      passed,
			Score:       1,
			Method:      "minimal",
			Reason:      reason,
			LengthOK:    passed,
			AlignmentOK: true,
			SemanticOK:  true,
		}
	}
	return o.validator.Validate(ctx, quality.ValidateInput{
		Query:             query,
		Answer:            resp.Content,
		Logprobs:          resp.Logprobs,
		Difficulty:        difficulty,
		ThresholdOverride: tier.Threshold,
		Backend:           tier.Backend,
		Temperature:       tier.Temperature,
		FinishReason:      resp.FinishReason,
	})
}

// savings compares the realized cost against running the whole job on the
// most expensive tier.
func (o *Orchestrator) savings(result *Result) float64 {
	if len(result.Tiers) == 0 {
		return 0
	}
	final := result.Tiers[len(result.Tiers)-1]
	mostExpensive := o.tiers[len(o.tiers)-1]
	estimated := tierCost(mostExpensive, final.Usage)
	savings := estimated - result.TotalCost
	if savings < 0 {
		return 0
	}
	return savings
}

// tierCost prices token usage at the tier's rate.
func tierCost(tier Tier, usage backends.TokenUsage) float64 {
	tokens := usage.TotalTokens
	if tokens == 0 {
		tokens = usage.PromptTokens + usage.CompletionTokens
	}
	return float64(tokens) / 1000 * tier.CostPer1K
}

// estimateUsage approximates token usage from text when a streaming backend
// reports none. English averages roughly 1.3 tokens per word.
func estimateUsage(query, content string) backends.TokenUsage {
	prompt := int(float64(len(strings.Fields(query)))*1.3) + 1
	completion := int(float64(len(strings.Fields(content)))*1.3) + 1
	return backends.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

func (o *Orchestrator) recordTierCall(tier Tier, status string, latency time.Duration, tokens int, cost float64) {
	if o.metrics != nil {
		o.metrics.RecordTierCall(tier.ID, tier.Backend, status, latency, tokens, cost)
	}
}

func (o *Orchestrator) recordCascade(outcome string, savings float64) {
	if o.metrics != nil {
		o.metrics.RecordCascade(outcome, savings)
	}
}
