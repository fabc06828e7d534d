package quality

import (
	"fmt"
	"regexp"
	"strings"

	"mercator-hq/saturn/pkg/complexity"
)

// AlignmentAnalysis is the outcome of scoring one (query, answer) pair.
// It is computed fresh per pair and never persisted.
type AlignmentAnalysis struct {
	// Score is the overall alignment in [0,1].
	Score float64 `json:"score"`

	// Features is the per-feature contribution breakdown.
	Features map[string]float64 `json:"features"`

	// Trivial indicates the pair was detected as a trivial exchange
	// (short query, short answer, trivial question shape).
	Trivial bool `json:"trivial"`

	// OffTopic indicates no keyword overlap was found at all.
	OffTopic bool `json:"off_topic"`

	// Reasoning is a human-readable summary of how the score was produced.
	Reasoning string `json:"reasoning"`
}

// AlignmentConfig tunes the alignment scorer. All values are empirically
// tuned defaults, not protocol requirements.
type AlignmentConfig struct {
	// Baseline is the starting score for ordinary pairs. Default: 0.20.
	Baseline float64

	// TrivialBaseline replaces Baseline for trivial exchanges. Default: 0.45.
	TrivialBaseline float64

	// OffTopicFloor caps the score when there is no keyword overlap at all.
	// Default: 0.25.
	OffTopicFloor float64

	// OffTopicFactor scales the score down before applying the floor.
	// Default: 0.6.
	OffTopicFactor float64

	// TrivialBoost multiplies the score for trivial pairs with any coverage.
	// Default: 1.3.
	TrivialBoost float64
}

// DefaultAlignmentConfig returns the tuned defaults.
func DefaultAlignmentConfig() AlignmentConfig {
	return AlignmentConfig{
		Baseline:        0.20,
		TrivialBaseline: 0.45,
		OffTopicFloor:   0.25,
		OffTopicFactor:  0.6,
		TrivialBoost:    1.3,
	}
}

// applyDefaults fills zero-valued fields with defaults.
func (c *AlignmentConfig) applyDefaults() {
	d := DefaultAlignmentConfig()
	if c.Baseline <= 0 {
		c.Baseline = d.Baseline
	}
	if c.TrivialBaseline <= 0 {
		c.TrivialBaseline = d.TrivialBaseline
	}
	if c.OffTopicFloor <= 0 {
		c.OffTopicFloor = d.OffTopicFloor
	}
	if c.OffTopicFactor <= 0 {
		c.OffTopicFactor = d.OffTopicFactor
	}
	if c.TrivialBoost <= 0 {
		c.TrivialBoost = d.TrivialBoost
	}
}

// Expected answer-length bands per difficulty, in words. Under-length is
// penalized more than over-length.
var lengthBands = map[complexity.Level]struct{ min, max int }{
	complexity.LevelTrivial:  {1, 30},
	complexity.LevelSimple:   {5, 60},
	complexity.LevelModerate: {15, 120},
	complexity.LevelHard:     {30, 200},
	complexity.LevelExpert:   {50, 300},
}

var (
	// trivialQuestionPattern recognizes question shapes whose correct answer
	// may legitimately be a word or a number.
	trivialQuestionPattern = regexp.MustCompile(
		`(?i)^\s*(what\s+is|what's|who\s+is|how\s+many|how\s+much)\b|^\s*\d+(\.\d+)?\s*[-+*/x^]`)

	// numericQuestionPattern recognizes questions expecting a numeric answer.
	numericQuestionPattern = regexp.MustCompile(
		`(?i)\d\s*[-+*/x^]\s*\d|how\s+(many|much)|what\s+percent`)

	// yesNoQuestionPattern recognizes polar questions.
	yesNoQuestionPattern = regexp.MustCompile(
		`(?i)^\s*(is|are|was|were|do|does|did|can|could|should|will|would|has|have)\b`)
)

// hedgingPhrases signal the model declining to answer.
var hedgingPhrases = []string{
	"i don't know", "i do not know", "not sure", "i'm not certain",
	"cannot answer", "can't answer", "i'm unable", "i am unable",
	"as an ai", "i cannot provide",
}

// explanationConnectives signal reasoning depth in an answer.
var explanationConnectives = []string{
	"because", "therefore", "however", "for example", "for instance",
	"consequently", "thus", "in contrast", "as a result", "specifically",
	"in other words",
}

// Scorer measures how well a candidate answer addresses a specific query.
// It is stateless after construction and safe for concurrent use.
type Scorer struct {
	config AlignmentConfig
}

// NewScorer creates an alignment scorer.
// Zero-valued config fields fall back to defaults.
func NewScorer(config AlignmentConfig) *Scorer {
	config.applyDefaults()
	return &Scorer{config: config}
}

// Score computes alignment assuming moderate difficulty.
func (s *Scorer) Score(query, answer string) *AlignmentAnalysis {
	return s.ScoreWithDifficulty(query, answer, complexity.LevelModerate)
}

// ScoreWithDifficulty computes alignment for a known difficulty level.
// The level shapes the expected answer length and whether explanation depth
// is rewarded.
func (s *Scorer) ScoreWithDifficulty(query, answer string, level complexity.Level) *AlignmentAnalysis {
	features := make(map[string]float64)
	var notes []string

	queryKeywords := ExtractKeywords(query)
	answerLower := strings.ToLower(answer)
	answerWords := strings.Fields(answer)
	queryWords := len(strings.Fields(query))

	trivial := len(answerWords) <= 5 && queryWords <= 6 && trivialQuestionPattern.MatchString(query)

	score := s.config.Baseline
	if trivial {
		score = s.config.TrivialBaseline
		notes = append(notes, "trivial exchange")
	}

	// (i) Keyword coverage with terse-answer bypass.
	covered := 0
	for _, kw := range queryKeywords {
		if matchesKeyword(answerLower, kw) {
			covered++
		}
	}
	coverage := 0.0
	if len(queryKeywords) > 0 {
		coverage = float64(covered) / float64(len(queryKeywords))
	}
	if len(answerWords) <= 3 && covered > 0 && coverage < 0.5 {
		// A correct terse answer ("4", "Paris") cannot cover many keywords;
		// give it partial credit instead of flagging it off-topic.
		coverage = 0.5
		notes = append(notes, "terse-answer bypass")
	}
	coverageCredit := coverageBand(coverage)
	score += coverageCredit
	features["keyword_coverage"] = coverageCredit
	notes = append(notes, fmt.Sprintf("coverage %.0f%% (%d/%d keywords)", coverage*100, covered, len(queryKeywords)))

	// (ii) Important-word coverage: capitalized, long, or numeric query tokens.
	importantCredit := s.importantWordCredit(query, answerLower)
	score += importantCredit
	features["important_words"] = importantCredit

	// (iii) Length appropriateness. A detected trivial exchange always uses
	// the trivial band: a one-word correct answer is not under-length.
	bandLevel := level
	if trivial {
		bandLevel = complexity.LevelTrivial
	}
	lengthCredit := s.lengthCredit(len(answerWords), bandLevel)
	score += lengthCredit
	features["length_fit"] = lengthCredit

	// (iv) Directness: easy queries deserve a short first sentence.
	if bandLevel <= complexity.LevelSimple {
		if first := firstSentenceWords(answer); first > 0 && first <= 12 {
			score += 0.05
			features["directness"] = 0.05
		}
	}

	// (v) Explanation depth, only meaningful for hard questions.
	if level >= complexity.LevelHard {
		depth := 0.0
		for _, conn := range explanationConnectives {
			if strings.Contains(answerLower, conn) {
				depth += 0.03
			}
		}
		if depth > 0.10 {
			depth = 0.10
		}
		score += depth
		features["explanation_depth"] = depth
	}

	// (vi) Answer-shape match and hedging.
	shapeCredit := s.shapeCredit(query, answerLower)
	score += shapeCredit
	features["answer_shape"] = shapeCredit

	analysis := &AlignmentAnalysis{
		Features: features,
		Trivial:  trivial,
	}

	switch {
	case covered == 0 && len(queryKeywords) > 2:
		// No overlap at all on a substantive query: cap hard.
		if score < 0 {
			score = 0
		}
		score = score * s.config.OffTopicFactor
		if score > s.config.OffTopicFloor {
			score = s.config.OffTopicFloor
		}
		analysis.OffTopic = true
		notes = append(notes, "off-topic cap applied")
	case trivial && covered > 0:
		score *= s.config.TrivialBoost
		notes = append(notes, "trivial boost applied")
	}

	analysis.Score = clamp01(score)
	analysis.Reasoning = strings.Join(notes, "; ")
	return analysis
}

// coverageBand maps a coverage fraction to a discrete credit.
func coverageBand(coverage float64) float64 {
	switch {
	case coverage >= 0.8:
		return 0.30
	case coverage >= 0.6:
		return 0.24
	case coverage >= 0.4:
		return 0.18
	case coverage >= 0.2:
		return 0.10
	case coverage > 0:
		return 0.05
	default:
		return 0
	}
}

// importantWordCredit rewards answers that mention the query's salient
// tokens: capitalized mid-sentence words, long words, and digit-bearing tokens.
func (s *Scorer) importantWordCredit(query, answerLower string) float64 {
	fields := strings.Fields(query)
	important := 0
	found := 0
	for i, tok := range fields {
		trimmed := strings.Trim(tok, edgePunctuation)
		if trimmed == "" {
			continue
		}
		capitalized := i > 0 && trimmed[0] >= 'A' && trimmed[0] <= 'Z'
		if !capitalized && len(trimmed) < 8 && !hasDigit(trimmed) {
			continue
		}
		lower := strings.ToLower(trimmed)
		if stopwords[lower] {
			continue
		}
		important++
		if strings.Contains(answerLower, lower) {
			found++
		}
	}
	if important == 0 {
		return 0
	}
	return 0.12 * float64(found) / float64(important)
}

// lengthCredit scores answer length against the difficulty band.
func (s *Scorer) lengthCredit(answerWords int, level complexity.Level) float64 {
	band, ok := lengthBands[level]
	if !ok {
		band = lengthBands[complexity.LevelModerate]
	}
	switch {
	case answerWords < band.min:
		// Under-length is penalized more than over-length.
		return -0.15 * (1 - float64(answerWords)/float64(band.min))
	case answerWords > band.max:
		over := float64(answerWords-band.max) / float64(band.max)
		if over > 1 {
			over = 1
		}
		return -0.05 * over
	default:
		return 0.08
	}
}

// shapeCredit rewards answers shaped like the question type and penalizes hedging.
func (s *Scorer) shapeCredit(query, answerLower string) float64 {
	credit := 0.0

	switch {
	case numericQuestionPattern.MatchString(query):
		if hasDigit(answerLower) {
			credit += 0.10
		}
	case yesNoQuestionPattern.MatchString(query):
		if strings.HasPrefix(answerLower, "yes") || strings.HasPrefix(answerLower, "no") {
			credit += 0.06
		}
	case strings.HasPrefix(strings.ToLower(strings.TrimSpace(query)), "why"):
		if strings.Contains(answerLower, "because") || strings.Contains(answerLower, "due to") {
			credit += 0.06
		}
	}

	for _, phrase := range hedgingPhrases {
		if strings.Contains(answerLower, phrase) {
			credit -= 0.12
			break
		}
	}
	return credit
}

// firstSentenceWords counts the words of the first sentence of text.
func firstSentenceWords(text string) int {
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if idx := strings.Index(text, sep); idx >= 0 {
			text = text[:idx]
		}
	}
	return len(strings.Fields(text))
}

// clamp01 clamps v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
