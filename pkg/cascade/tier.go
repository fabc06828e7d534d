package cascade

import (
	"fmt"
	"sort"
)

// Tier is one backend model configuration in the cascade, priced per
// thousand tokens. Tiers are ordered cheapest-first at construction and the
// list is read-only afterwards.
type Tier struct {
	// ID names the tier in results and logs (e.g., "draft", "verifier").
	ID string `yaml:"id"`

	// Backend is the registry name of the backend serving this tier.
	Backend string `yaml:"backend"`

	// Model is the model identifier passed to the backend.
	Model string `yaml:"model"`

	// CostPer1K is the blended price per 1000 tokens, in dollars.
	CostPer1K float64 `yaml:"cost_per_1k"`

	// Temperature is the sampling temperature for this tier.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps the completion length. Zero means backend default.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Logprobs requests token log-probabilities for confidence estimation.
	Logprobs bool `yaml:"logprobs"`

	// Threshold overrides the validator's quality threshold for answers
	// drafted by this tier. Nil uses the validator's own resolution.
	Threshold *float64 `yaml:"threshold,omitempty"`
}

// validateTiers checks the tier list at construction. Configuration errors
// fail here, never at call time.
func validateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("cascade requires at least one tier")
	}
	seen := make(map[string]bool, len(tiers))
	for i, t := range tiers {
		if t.ID == "" {
			return fmt.Errorf("tier %d: id is required", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("tier %q: duplicate id", t.ID)
		}
		seen[t.ID] = true
		if t.Backend == "" {
			return fmt.Errorf("tier %q: backend is required", t.ID)
		}
		if t.CostPer1K < 0 {
			return fmt.Errorf("tier %q: cost_per_1k must not be negative", t.ID)
		}
		if t.Threshold != nil && (*t.Threshold < 0 || *t.Threshold > 1) {
			return fmt.Errorf("tier %q: threshold %v out of [0,1]", t.ID, *t.Threshold)
		}
	}
	return nil
}

// sortTiers returns a copy of tiers ordered by ascending cost. The sort is
// stable so equally priced tiers keep their configured order.
func sortTiers(tiers []Tier) []Tier {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CostPer1K < sorted[j].CostPer1K
	})
	return sorted
}
