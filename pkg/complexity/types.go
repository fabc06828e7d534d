package complexity

import (
	"fmt"
	"strings"
)

// Level represents the assessed difficulty of a query.
// Higher levels demand stronger models and stricter quality thresholds.
type Level int

const (
	// LevelTrivial represents pattern-matchable queries (arithmetic, greetings).
	LevelTrivial Level = iota

	// LevelSimple represents basic single-step lookups and definitions.
	LevelSimple

	// LevelModerate represents queries needing explanation or comparison.
	LevelModerate

	// LevelHard represents multi-step analysis, optimization, or debugging.
	LevelHard

	// LevelExpert represents architectural or deeply technical problems.
	LevelExpert
)

// String returns the human-readable name of the level.
func (l Level) String() string {
	switch l {
	case LevelTrivial:
		return "trivial"
	case LevelSimple:
		return "simple"
	case LevelModerate:
		return "moderate"
	case LevelHard:
		return "hard"
	case LevelExpert:
		return "expert"
	default:
		return fmt.Sprintf("Level(%d)", l)
	}
}

// ParseLevel parses a level name as produced by String, ignoring case.
// Returns an error for unknown names.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "trivial":
		return LevelTrivial, nil
	case "simple":
		return LevelSimple, nil
	case "moderate":
		return LevelModerate, nil
	case "hard":
		return LevelHard, nil
	case "expert":
		return LevelExpert, nil
	default:
		return LevelModerate, fmt.Errorf("unknown complexity level %q", s)
	}
}

// Result is the outcome of classifying one query.
type Result struct {
	// Level is the assessed difficulty bucket.
	Level Level `json:"level"`

	// Confidence is the fixed per-rule confidence of the classification, in [0,1].
	Confidence float64 `json:"confidence"`

	// MatchedTerms lists gazetteer terms found in the query.
	MatchedTerms []string `json:"matched_terms,omitempty"`

	// DomainScores maps technical domains (physics, math, cs, engineering)
	// to their weighted match scores.
	DomainScores map[string]float64 `json:"domain_scores,omitempty"`

	// TechnicalBoost is the aggregate gazetteer score driving level boosts.
	TechnicalBoost float64 `json:"technical_boost"`

	// WordCount is the whitespace-separated word count of the query.
	WordCount int `json:"word_count"`

	// HasCode indicates the query contains code fragments.
	HasCode bool `json:"has_code"`

	// MultiPart indicates the query has multiple questions or conditional structure.
	MultiPart bool `json:"multi_part"`

	// Signal names the rule that decided the base level (for diagnostics).
	Signal string `json:"signal"`
}
