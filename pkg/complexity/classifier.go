package complexity

import (
	"regexp"
	"sort"
	"strings"
)

// Fixed per-rule confidence constants. These are tuned defaults, not
// calibrated probabilities.
const (
	confTrivialPattern = 0.95
	confTrivialConcept = 0.85
	confTechnical      = 0.90
	confKeywordStrong  = 0.80
	confKeywordWeak    = 0.70
	confWordCount      = 0.60
)

// Config tunes the classifier's numeric thresholds. Word lists and patterns
// are fixed; the thresholds here are the empirically tuned knobs.
type Config struct {
	// TrivialConceptMaxWords gates the trivial-concept list: longer queries
	// mentioning a trivial concept are not forced to trivial. Default: 8.
	TrivialConceptMaxWords int

	// StrongBoostThreshold is the technical score at which the gazetteer
	// dominates keyword rules. Default: 4.0.
	StrongBoostThreshold float64

	// MildBoostThreshold is the technical score that bumps the base level by
	// one. Default: 1.5.
	MildBoostThreshold float64

	// ShortExpertBoost is the technical score a very short query needs to be
	// allowed to reach the expert level. Default: 6.0.
	ShortExpertBoost float64

	// ShortQueryWords is the word count below which a query counts as very
	// short. Default: 5.
	ShortQueryWords int

	// LongQueryWords is the word count above which a query cannot stay
	// simple or trivial. Default: 30.
	LongQueryWords int
}

// DefaultConfig returns the tuned default thresholds.
func DefaultConfig() Config {
	return Config{
		TrivialConceptMaxWords: 8,
		StrongBoostThreshold:   4.0,
		MildBoostThreshold:     1.5,
		ShortExpertBoost:       6.0,
		ShortQueryWords:        5,
		LongQueryWords:         30,
	}
}

// applyDefaults fills zero-valued fields with defaults.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.TrivialConceptMaxWords <= 0 {
		c.TrivialConceptMaxWords = d.TrivialConceptMaxWords
	}
	if c.StrongBoostThreshold <= 0 {
		c.StrongBoostThreshold = d.StrongBoostThreshold
	}
	if c.MildBoostThreshold <= 0 {
		c.MildBoostThreshold = d.MildBoostThreshold
	}
	if c.ShortExpertBoost <= 0 {
		c.ShortExpertBoost = d.ShortExpertBoost
	}
	if c.ShortQueryWords <= 0 {
		c.ShortQueryWords = d.ShortQueryWords
	}
	if c.LongQueryWords <= 0 {
		c.LongQueryWords = d.LongQueryWords
	}
}

var (
	// arithmeticPattern matches bare arithmetic questions like "2+2",
	// "what is 17 * 3?".
	arithmeticPattern = regexp.MustCompile(
		`(?i)^\s*(what\s+is|what's|calculate|compute|solve)?[\s:]*\d+(\.\d+)?\s*[-+*/x^]\s*\d+(\.\d+)?\s*[=?.!\s]*$`)

	// greetingPattern matches greetings and pleasantries.
	greetingPattern = regexp.MustCompile(
		`(?i)^\s*(hi|hello|hey|yo|howdy|good\s+(morning|afternoon|evening)|thanks|thank\s+you)\s*[!.,?]*\s*$`)

	// numberedListPattern detects enumerated multi-part prompts ("1. ... 2. ...").
	numberedListPattern = regexp.MustCompile(`\b\d+[.)]\s`)
)

// Classifier assigns complexity levels to queries. It is stateless after
// construction and safe for concurrent use.
type Classifier struct {
	config Config
}

// NewClassifier creates a classifier with the given thresholds.
// Zero-valued config fields fall back to defaults.
func NewClassifier(config Config) *Classifier {
	config.applyDefaults()
	return &Classifier{config: config}
}

// Classify buckets a query into a difficulty level.
// The same query always produces the same Result.
func (c *Classifier) Classify(query string) *Result {
	q := strings.ToLower(strings.TrimSpace(query))
	wc := len(strings.Fields(query))

	result := &Result{WordCount: wc}

	// Rule (a): fixed trivial patterns win outright.
	if arithmeticPattern.MatchString(query) || greetingPattern.MatchString(query) {
		result.Level = LevelTrivial
		result.Confidence = confTrivialPattern
		result.Signal = "trivial_pattern"
		return result
	}

	// Rule (b): trivial-concept list, gated by word count.
	if wc <= c.config.TrivialConceptMaxWords {
		for _, concept := range trivialConcepts {
			if strings.Contains(q, concept) {
				result.Level = LevelTrivial
				result.Confidence = confTrivialConcept
				result.Signal = "trivial_concept"
				return result
			}
		}
	}

	// Rule (c): technical-term gazetteer.
	result.TechnicalBoost, result.DomainScores, result.MatchedTerms = c.scanGazetteer(q)

	// Rule (d): tiered keyword counts and structure signals.
	simpleCount := countMatches(q, simpleKeywords)
	moderateCount := countMatches(q, moderateKeywords)
	hardCount := countMatches(q, hardKeywords)
	expertCount := countMatches(q, expertKeywords)
	result.HasCode = containsAny(q, codeIndicators)
	result.MultiPart = c.isMultiPart(query, q)

	// Rule (e): resolve the base level by priority.
	base, conf, signal := c.resolveBase(wc, simpleCount, moderateCount, hardCount, expertCount, result.TechnicalBoost)

	// Escalating boosts, one level each.
	level := base
	if result.TechnicalBoost >= c.config.MildBoostThreshold && level < LevelHard && signal != "technical" {
		level++
	}
	if result.HasCode && level < LevelExpert {
		level++
	}
	if result.MultiPart && level < LevelExpert {
		level++
	}

	// Sanity caps: a very short query cannot reach expert without an
	// overwhelming technical score, and a long query cannot stay simple.
	if wc < c.config.ShortQueryWords && level == LevelExpert && result.TechnicalBoost < c.config.ShortExpertBoost {
		level = LevelHard
	}
	if wc > c.config.LongQueryWords && level < LevelModerate {
		level = LevelModerate
		signal = "length_floor"
		conf = confWordCount
	}

	result.Level = level
	result.Confidence = conf
	result.Signal = signal
	return result
}

// resolveBase picks the base level before boosts.
func (c *Classifier) resolveBase(wc, simpleCount, moderateCount, hardCount, expertCount int, techBoost float64) (Level, float64, string) {
	switch {
	case techBoost >= c.config.StrongBoostThreshold:
		return LevelHard, confTechnical, "technical"
	case expertCount >= 2:
		return LevelExpert, confKeywordStrong, "expert_keywords"
	case expertCount == 1 && (hardCount >= 1 || wc > 20):
		return LevelExpert, confKeywordWeak, "expert_keywords"
	case expertCount == 1 || hardCount >= 2:
		return LevelHard, confKeywordStrong, "hard_keywords"
	case hardCount == 1 || moderateCount >= 2:
		return LevelModerate, confKeywordStrong, "moderate_keywords"
	case moderateCount == 1:
		return LevelModerate, confKeywordWeak, "moderate_keywords"
	case simpleCount >= 1:
		return LevelSimple, confKeywordWeak, "simple_keywords"
	}

	// Word-count default.
	switch {
	case wc <= 4:
		return LevelTrivial, confWordCount, "word_count"
	case wc <= 12:
		return LevelSimple, confWordCount, "word_count"
	case wc <= c.config.LongQueryWords:
		return LevelModerate, confWordCount, "word_count"
	default:
		return LevelHard, confWordCount, "word_count"
	}
}

// scanGazetteer scores technical vocabulary. Multi-word terms are removed
// from the query before single-word matching to avoid double counting.
// Domains are scanned in sorted order so repeated calls match terms
// identically.
func (c *Classifier) scanGazetteer(q string) (float64, map[string]float64, []string) {
	var total float64
	var matched []string
	scores := make(map[string]float64)

	domains := make([]string, 0, len(domainTerms))
	for domain := range domainTerms {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	remaining := q
	for _, domain := range domains {
		terms := domainTerms[domain]
		var score float64
		for _, term := range terms.multi {
			if strings.Contains(remaining, term) {
				score += multiWordTermWeight
				matched = append(matched, term)
				remaining = strings.ReplaceAll(remaining, term, " ")
			}
		}
		for _, term := range terms.single {
			if containsWord(remaining, term) {
				score += singleTermWeight
				matched = append(matched, term)
			}
		}
		if score > 0 {
			scores[domain] = score
			total += score
		}
	}

	if len(scores) == 0 {
		return 0, nil, nil
	}
	return total, scores, matched
}

// isMultiPart detects multiple questions or conditional structure.
func (c *Classifier) isMultiPart(raw, q string) bool {
	if strings.Count(raw, "?") > 1 {
		return true
	}
	if numberedListPattern.MatchString(raw) {
		return true
	}
	if strings.Contains(q, " and then ") || strings.Contains(q, "; ") {
		return true
	}
	if strings.Contains(q, "if ") && strings.Contains(q, " then ") {
		return true
	}
	return false
}

// countMatches counts how many list entries occur in q.
func countMatches(q string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			count++
		}
	}
	return count
}

// containsAny reports whether any indicator occurs in q.
func containsAny(q string, indicators []string) bool {
	for _, ind := range indicators {
		if strings.Contains(q, ind) {
			return true
		}
	}
	return false
}

// containsWord reports whether term occurs in q on word boundaries.
func containsWord(q, term string) bool {
	idx := 0
	for {
		i := strings.Index(q[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		beforeOK := start == 0 || !isWordChar(q[start-1])
		afterOK := end == len(q) || !isWordChar(q[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

// isWordChar reports whether b continues a word.
func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
