package cascade

import (
	"context"
	"errors"
	"math"
	"testing"

	mock "mercator-hq/saturn/internal/backends"
	"mercator-hq/saturn/pkg/backends"
)

func twoTiers() []Tier {
	return []Tier{
		// Deliberately listed expensive-first; construction must sort.
		{ID: "verifier", Backend: "strong", Model: "big-model", CostPer1K: 10.0},
		{ID: "draft", Backend: "cheap", Model: "small-model", CostPer1K: 0.5},
	}
}

func TestNewConfigErrors(t *testing.T) {
	registry := backends.NewRegistry(mock.NewMockBackend("cheap"), mock.NewMockBackend("strong"))
	bad := 1.5

	tests := []struct {
		name string
		opts Options
	}{
		{"empty tiers", Options{Registry: registry}},
		{"nil registry", Options{Tiers: twoTiers()}},
		{
			"unknown backend",
			Options{Tiers: []Tier{{ID: "a", Backend: "nope", CostPer1K: 1}}, Registry: registry},
		},
		{
			"duplicate tier id",
			Options{Tiers: []Tier{
				{ID: "a", Backend: "cheap", CostPer1K: 1},
				{ID: "a", Backend: "strong", CostPer1K: 2},
			}, Registry: registry},
		},
		{
			"threshold out of range",
			Options{Tiers: []Tier{{ID: "a", Backend: "cheap", CostPer1K: 1, Threshold: &bad}}, Registry: registry},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.opts); err == nil {
				t.Error("expected a construction error")
			}
		})
	}
}

func TestExecuteDraftAccepted(t *testing.T) {
	cheap := mock.NewMockBackend("cheap", mock.MockResponse{Content: "The capital of France is Paris."})
	strong := mock.NewMockBackend("strong")
	o, err := New(Options{
		Tiers:    twoTiers(),
		Registry: backends.NewRegistry(cheap, strong),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := o.Execute(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.DraftAccepted || result.Cascaded {
		t.Errorf("expected accepted draft, got %+v", result)
	}
	if result.FinalTier != "draft" {
		t.Errorf("final tier = %q, want draft (cheapest regardless of input order)", result.FinalTier)
	}
	if strong.Calls() != 0 {
		t.Errorf("verifier was called %d times for an accepted draft", strong.Calls())
	}
	if result.RequestID == "" {
		t.Error("expected a request id")
	}
	if len(result.Tiers) != 1 || result.Tiers[0].Quality == nil {
		t.Fatalf("expected one gated tier result, got %+v", result.Tiers)
	}
	if result.Savings <= 0 {
		t.Errorf("accepting the cheap draft should save money, got %v", result.Savings)
	}
}

func TestExecuteEscalation(t *testing.T) {
	// Twelve-word query; three-word draft with zero keyword overlap.
	query := "How do I configure nginx reverse proxying for secure websocket connections today?"
	cheap := mock.NewMockBackend("cheap", mock.MockResponse{Content: "Bananas ripen quickly."})
	strong := mock.NewMockBackend("strong", mock.MockResponse{
		Content: "Configure nginx reverse proxying for websocket connections with an upgrade header block: set proxy_http_version 1.1, pass the Upgrade and Connection headers, and point proxy_pass at the backend. Secure it with TLS on the listener.",
	})
	o, err := New(Options{
		Tiers:    twoTiers(),
		Registry: backends.NewRegistry(cheap, strong),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := o.Execute(context.Background(), query)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Cascaded || result.DraftAccepted {
		t.Errorf("expected escalation, got %+v", result)
	}
	if result.FinalTier != "verifier" {
		t.Errorf("final tier = %q, want verifier", result.FinalTier)
	}
	if cheap.Calls() != 1 || strong.Calls() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", cheap.Calls(), strong.Calls())
	}
	if len(result.Tiers) != 2 {
		t.Fatalf("expected two tier results, got %d", len(result.Tiers))
	}
	if result.Tiers[0].Quality == nil || result.Tiers[0].Quality.Passed {
		t.Errorf("draft verdict should be a recorded failure, got %+v", result.Tiers[0].Quality)
	}
	wantCost := result.Tiers[0].Cost + result.Tiers[1].Cost
	if math.Abs(result.TotalCost-wantCost) > 1e-12 {
		t.Errorf("total cost %v, want sum of tier costs %v", result.TotalCost, wantCost)
	}
}

func TestExecuteBackendErrorAborts(t *testing.T) {
	boom := errors.New("connection refused")
	cheap := mock.NewMockBackend("cheap", mock.MockResponse{Err: boom})
	strong := mock.NewMockBackend("strong")
	o, err := New(Options{
		Tiers:    twoTiers(),
		Registry: backends.NewRegistry(cheap, strong),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = o.Execute(context.Background(), "anything at all")
	if err == nil {
		t.Fatal("expected error")
	}
	var tierErr *TierError
	if !errors.As(err, &tierErr) {
		t.Fatalf("error %v should be a TierError", err)
	}
	if tierErr.TierID != "draft" || !errors.Is(err, boom) {
		t.Errorf("tier error %+v should wrap the backend failure", tierErr)
	}
	if strong.Calls() != 0 {
		t.Error("a draft failure must abort the run, not escalate")
	}
}

func TestExecuteMinimalMode(t *testing.T) {
	cheap := mock.NewMockBackend("cheap", mock.MockResponse{Content: "No."})
	strong := mock.NewMockBackend("strong", mock.MockResponse{Content: "A longer verifier answer with substance."})
	o, err := New(Options{
		Tiers:           twoTiers(),
		Registry:        backends.NewRegistry(cheap, strong),
		Minimal:         true,
		MinimalMinWords: 3,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := o.Execute(context.Background(), "Is the sky green?")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Cascaded {
		t.Error("a one-word draft should fail the length heuristic")
	}
	if result.Tiers[0].Quality.Method != "minimal" {
		t.Errorf("gate method = %q, want minimal", result.Tiers[0].Quality.Method)
	}
}

func TestTiersSortedByCost(t *testing.T) {
	registry := backends.NewRegistry(mock.NewMockBackend("cheap"), mock.NewMockBackend("strong"))
	o, err := New(Options{Tiers: twoTiers(), Registry: registry})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tiers := o.Tiers()
	if tiers[0].ID != "draft" || tiers[1].ID != "verifier" {
		t.Errorf("tiers not cost-ordered: %v, %v", tiers[0].ID, tiers[1].ID)
	}
}
