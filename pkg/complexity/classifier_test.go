package complexity

import (
	"reflect"
	"strings"
	"testing"
)

func TestClassifyCorpus(t *testing.T) {
	c := NewClassifier(Config{})

	tests := []struct {
		name  string
		query string
		want  []Level
	}{
		{
			name:  "arithmetic",
			query: "What is 2+2?",
			want:  []Level{LevelTrivial},
		},
		{
			name:  "greeting",
			query: "hello there",
			want:  []Level{LevelTrivial},
		},
		{
			name:  "trivial concept",
			query: "What is the capital of France?",
			want:  []Level{LevelTrivial},
		},
		{
			name:  "protocol comparison",
			query: "Compare TCP and UDP",
			want:  []Level{LevelModerate, LevelHard},
		},
		{
			name:  "expert design prompt",
			query: "Design and implement a scalable architecture for a distributed message queue that must handle a million events per second with strict ordering guarantees across partitions and graceful degradation under load",
			want:  []Level{LevelExpert},
		},
		{
			name:  "simple definition",
			query: "Define recursion briefly",
			want:  []Level{LevelTrivial, LevelSimple},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.query)
			ok := false
			for _, w := range tc.want {
				if got.Level == w {
					ok = true
				}
			}
			if !ok {
				t.Errorf("Classify(%q) = %s (confidence %v, signal %q), want one of %v",
					tc.query, got.Level, got.Confidence, got.Signal, tc.want)
			}
			if got.Confidence <= 0 || got.Confidence > 1 {
				t.Errorf("confidence %v out of (0,1]", got.Confidence)
			}
		})
	}
}

func TestClassifyShortQueryCap(t *testing.T) {
	c := NewClassifier(Config{})

	// Four words cannot justify an expert rating without a strong technical
	// signal.
	got := c.Classify("Optimize this please now")
	if got.Level == LevelExpert {
		t.Errorf("short vague query rated expert: %+v", got)
	}
}

func TestClassifyLongQueryFloor(t *testing.T) {
	c := NewClassifier(Config{})

	long := strings.Repeat("please describe the situation and everything around it ", 5)
	got := c.Classify(long)
	if got.Level < LevelModerate {
		t.Errorf("%d-word query rated %s, want at least moderate", got.WordCount, got.Level)
	}
}

func TestClassifyCodeBoost(t *testing.T) {
	c := NewClassifier(Config{})

	plain := c.Classify("Why does my loop not stop when the list is empty here")
	coded := c.Classify("Why does my loop not stop: ```for i := 0; i < len(xs); i++ {```")
	if coded.Level < plain.Level {
		t.Errorf("code snippet lowered the level: plain %s, coded %s", plain.Level, coded.Level)
	}
	if !coded.HasCode {
		t.Error("expected code detection")
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier(Config{})

	// Terms from several gazetteer domains in one query.
	query := "Explain how a markov chain relates to quantum entanglement, signal processing, and tcp latency"

	first := c.Classify(query)
	if len(first.MatchedTerms) < 4 {
		t.Fatalf("expected matches across domains, got %v", first.MatchedTerms)
	}
	for i := 0; i < 25; i++ {
		got := c.Classify(query)
		if got.Level != first.Level || got.TechnicalBoost != first.TechnicalBoost {
			t.Fatalf("run %d: level %s boost %v, first run level %s boost %v",
				i, got.Level, got.TechnicalBoost, first.Level, first.TechnicalBoost)
		}
		if !reflect.DeepEqual(got.MatchedTerms, first.MatchedTerms) {
			t.Fatalf("run %d: matched terms %v, first run %v", i, got.MatchedTerms, first.MatchedTerms)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"trivial", LevelTrivial, false},
		{"EXPERT", LevelExpert, false},
		{"Moderate", LevelModerate, false},
		{"bogus", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v", tc.in, got, err, tc.want)
		}
	}
}
