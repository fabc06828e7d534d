package quality

import "strings"

// Response-only semantic heuristics: a coarse quality prior computed from
// the answer text alone, used when no logprobs or query are available and
// blended in otherwise. The result is always within [0.2, 0.95]: text alone
// can neither condemn nor vouch for an answer completely.

const (
	semanticMin  = 0.20
	semanticMax  = 0.95
	semanticBase = 0.50
)

// contradictionMarkers signal self-correction mid-answer.
var contradictionMarkers = []string{
	"but actually", "wait, no", "on second thought", "i mean,",
	"correction:", "scratch that",
}

// evasivePhrases signal a non-committal answer.
var evasivePhrases = []string{
	"it depends", "hard to say", "difficult to say", "impossible to determine",
	"there is no single answer", "who's to say",
}

// semanticScore computes the response-only score and its component breakdown.
func semanticScore(answer string) (float64, map[string]float64) {
	components := make(map[string]float64)
	lower := strings.ToLower(answer)
	words := strings.Fields(answer)

	score := semanticBase

	// Hedging: each distinct hedge phrase costs 0.05, capped at 0.15.
	hedge := 0.0
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			hedge += 0.05
		}
	}
	if hedge > 0.15 {
		hedge = 0.15
	}
	score -= hedge
	components["hedging"] = -hedge

	// Completeness: ideal mean sentence length band.
	completeness := completenessCredit(answer, len(words))
	score += completeness
	components["completeness"] = completeness

	// Specificity: numbers, examples, and long-word density.
	specificity := 0.0
	if hasDigit(lower) {
		specificity += 0.05
	}
	if strings.Contains(lower, "for example") || strings.Contains(lower, "e.g.") || strings.Contains(lower, "such as") {
		specificity += 0.05
	}
	if longWordDensity(words) > 0.2 {
		specificity += 0.05
	}
	score += specificity
	components["specificity"] = specificity

	// Coherence: contradictions and heavy lexical repetition.
	coherence := 0.0
	for _, marker := range contradictionMarkers {
		if strings.Contains(lower, marker) {
			coherence -= 0.10
			break
		}
	}
	if repetitionRatio(words) > 0.15 {
		coherence -= 0.05
	}
	score += coherence
	components["coherence"] = coherence

	// Directness: evasive phrasing costs.
	directness := 0.0
	for _, phrase := range evasivePhrases {
		if strings.Contains(lower, phrase) {
			directness -= 0.10
			break
		}
	}
	score += directness
	components["directness"] = directness

	if score < semanticMin {
		score = semanticMin
	}
	if score > semanticMax {
		score = semanticMax
	}
	return score, components
}

// completenessCredit rewards a mean sentence length in the ideal band.
func completenessCredit(answer string, wordCount int) float64 {
	if wordCount == 0 {
		return -0.10
	}
	sentences := countSentences(answer)
	if sentences == 0 {
		sentences = 1
	}
	mean := float64(wordCount) / float64(sentences)
	switch {
	case mean >= 8 && mean <= 25:
		return 0.10
	case mean < 4 || mean > 40:
		return -0.10
	default:
		return 0
	}
}

// countSentences counts sentence terminators.
func countSentences(text string) int {
	count := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
		}
	}
	return count
}

// longWordDensity is the fraction of words with 7+ characters.
func longWordDensity(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	long := 0
	for _, w := range words {
		if len(strings.Trim(w, edgePunctuation)) >= 7 {
			long++
		}
	}
	return float64(long) / float64(len(words))
}

// repetitionRatio is the frequency of the most common non-stopword.
func repetitionRatio(words []string) float64 {
	if len(words) < 10 {
		return 0
	}
	counts := make(map[string]int)
	total := 0
	for _, w := range words {
		w = strings.Trim(strings.ToLower(w), edgePunctuation)
		if w == "" || stopwords[w] {
			continue
		}
		counts[w]++
		total++
	}
	if total == 0 {
		return 0
	}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return float64(max) / float64(total)
}
