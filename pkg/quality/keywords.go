package quality

import "strings"

// stopwords are dropped during keyword extraction.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "am": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"can": true, "could": true, "should": true, "may": true, "might": true,
	"i": true, "you": true, "he": true, "she": true, "it": true, "we": true,
	"they": true, "me": true, "my": true, "your": true, "its": true,
	"of": true, "in": true, "on": true, "at": true, "to": true, "for": true,
	"with": true, "by": true, "from": true, "about": true, "as": true,
	"and": true, "or": true, "but": true, "not": true, "no": true,
	"this": true, "that": true, "these": true, "those": true, "there": true,
	"what": true, "which": true, "who": true, "whom": true, "whose": true,
	"when": true, "where": true, "why": true, "how": true,
	"please": true, "tell": true, "give": true,
}

// abbreviations are short tokens kept despite the length filter.
var abbreviations = map[string]bool{
	"ai": true, "ml": true, "os": true, "db": true, "ip": true, "ui": true,
	"api": true, "cpu": true, "gpu": true, "ram": true, "sql": true,
	"tcp": true, "udp": true, "http": true, "css": true, "dns": true,
	"k8s": true, "aws": true, "gcp": true, "id": true, "io": true, "go": true,
	"c": true, "r": true,
}

// synonyms maps a query keyword to acceptable stand-ins in the answer.
// The table is deliberately small; it covers common phrasing drift, not
// general semantics.
var synonyms = map[string][]string{
	"big":      {"large", "huge", "enormous"},
	"small":    {"little", "tiny", "compact"},
	"fast":     {"quick", "rapid", "speedy"},
	"slow":     {"sluggish", "gradual"},
	"error":    {"bug", "fault", "failure", "mistake"},
	"make":     {"create", "build", "construct", "produce"},
	"use":      {"utilize", "employ", "apply"},
	"show":     {"display", "demonstrate", "illustrate"},
	"start":    {"begin", "launch", "initiate"},
	"stop":     {"halt", "end", "terminate"},
	"car":      {"automobile", "vehicle"},
	"buy":      {"purchase", "acquire"},
	"help":     {"assist", "aid", "support"},
	"way":      {"method", "approach", "technique"},
	"problem":  {"issue", "difficulty", "challenge"},
	"answer":   {"solution", "response", "result"},
	"compare":  {"comparison", "versus", "differ", "difference"},
	"explain":  {"explanation", "describe", "description"},
	"improve":  {"enhance", "optimize", "better"},
	"important": {"significant", "critical", "key", "essential"},
}

// edgePunctuation is stripped from token boundaries during extraction.
const edgePunctuation = ".,!?;:\"'()[]{}<>"

// ExtractKeywords tokenizes text into content keywords: lower-cased,
// whitespace-split, edge punctuation stripped, stopwords removed. A token
// survives if it carries a digit, is a whitelisted abbreviation, or is
// longer than 2 characters.
func ExtractKeywords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	keywords := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))

	for _, tok := range fields {
		tok = strings.Trim(tok, edgePunctuation)
		if tok == "" || stopwords[tok] || seen[tok] {
			continue
		}
		if hasDigit(tok) || abbreviations[tok] || len(tok) > 2 {
			keywords = append(keywords, tok)
			seen[tok] = true
		}
	}
	return keywords
}

// matchesKeyword reports whether the answer contains the keyword verbatim or
// one of its synonyms.
func matchesKeyword(answerLower, keyword string) bool {
	if strings.Contains(answerLower, keyword) {
		return true
	}
	for _, syn := range synonyms[keyword] {
		if strings.Contains(answerLower, syn) {
			return true
		}
	}
	return false
}

// hasDigit reports whether s contains any ASCII digit.
func hasDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}
