package cascade

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"mercator-hq/saturn/pkg/backends"
	"mercator-hq/saturn/pkg/quality"
)

// EventType identifies one kind of streaming event.
type EventType string

const (
	// EventRouting opens the stream with the chosen draft tier.
	EventRouting EventType = "routing"

	// EventChunk carries one increment of a tier's answer.
	EventChunk EventType = "chunk"

	// EventDraftDecision reports the quality verdict on the draft.
	EventDraftDecision EventType = "draft_decision"

	// EventSwitch announces escalation to the next tier.
	EventSwitch EventType = "switch"

	// EventComplete terminates the stream with the aggregate result.
	EventComplete EventType = "complete"

	// EventError terminates the stream with a failure.
	EventError EventType = "error"
)

// Event is one element of the ordered stream a cascade emits. Exactly one
// terminal event (complete or error) ends every stream.
type Event struct {
	// Type discriminates the event.
	Type EventType `json:"type"`

	// RequestID ties the event to its cascade run.
	RequestID string `json:"request_id"`

	// TierID names the tier the event concerns, where applicable.
	TierID string `json:"tier_id,omitempty"`

	// Delta is the content increment of a chunk event.
	Delta string `json:"delta,omitempty"`

	// Decision is the quality verdict of a draft_decision event.
	Decision *quality.QualityResult `json:"decision,omitempty"`

	// Result is the aggregate outcome, set on the complete event.
	Result *Result `json:"result,omitempty"`

	// Err is set on the error event.
	Err error `json:"-"`
}

// Stream runs one query through the cascade, emitting an ordered event
// sequence: routing, chunks for each tier, a draft_decision per gated tier,
// a switch on escalation, then a terminal complete or error.
//
// The returned channel is unbuffered: the producer suspends at every event
// until the consumer receives it, so a consumer that stops pulling halts
// generation. Cancel the context to release a stalled producer. The channel
// is closed after the terminal event.
func (o *Orchestrator) Stream(ctx context.Context, query string) <-chan Event {
	events := make(chan Event)
	go o.streamRun(ctx, query, events)
	return events
}

func (o *Orchestrator) streamRun(ctx context.Context, query string, events chan<- Event) {
	defer close(events)
	start := time.Now()

	result := &Result{
		RequestID:  uuid.NewString(),
		Query:      query,
		Complexity: o.classifier.Classify(query),
	}
	logger := o.logger.With("request_id", result.RequestID, "mode", "stream")

	emit := func(ev Event) bool {
		ev.RequestID = result.RequestID
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(Event{Type: EventRouting, TierID: o.tiers[0].ID}) {
		return
	}

	for i, tier := range o.tiers {
		tr, ok, err := o.streamTier(ctx, tier, query, emit)
		if err != nil {
			o.recordCascade("error", 0)
			emit(Event{Type: EventError, TierID: tier.ID, Err: err})
			return
		}
		if !ok {
			// Consumer went away mid-tier.
			return
		}
		result.TotalCost += tr.Cost

		if i == len(o.tiers)-1 {
			result.Tiers = append(result.Tiers, tr)
			result.Content = tr.Content
			result.FinalTier = tier.ID
			result.DraftAccepted = i == 0
			break
		}

		verdict := o.gate(ctx, tier, query, &backends.GenerateResponse{
			Content:      tr.Content,
			FinishReason: finishReasonOf(tr),
			Usage:        tr.Usage,
		}, result.Complexity)
		tr.Quality = verdict
		result.Tiers = append(result.Tiers, tr)
		if !emit(Event{Type: EventDraftDecision, TierID: tier.ID, Decision: verdict}) {
			return
		}

		if verdict.Passed {
			result.Content = tr.Content
			result.FinalTier = tier.ID
			result.DraftAccepted = i == 0
			break
		}
		result.Cascaded = true
		next := o.tiers[i+1]
		logger.Info("escalating", "tier", tier.ID, "next", next.ID, "reason", verdict.Reason)
		if !emit(Event{Type: EventSwitch, TierID: next.ID}) {
			return
		}
	}

	result.Savings = o.savings(result)
	result.TotalLatency = time.Since(start)

	outcome := "accepted"
	if result.Cascaded {
		outcome = "escalated"
	}
	o.recordCascade(outcome, result.Savings)
	emit(Event{Type: EventComplete, Result: result})
}

// streamTier consumes one tier's chunk stream, forwarding each delta.
// Returns ok=false when the consumer stopped pulling.
func (o *Orchestrator) streamTier(ctx context.Context, tier Tier, query string, emit func(Event) bool) (TierResult, bool, error) {
	backend, err := o.registry.Get(tier.Backend)
	if err != nil {
		return TierResult{}, true, &TierError{TierID: tier.ID, Backend: tier.Backend, Err: err}
	}

	callStart := time.Now()
	chunks, err := backend.StreamGenerate(ctx, &backends.GenerateRequest{
		Model:       tier.Model,
		Messages:    backends.UserMessage(query),
		Temperature: tier.Temperature,
		MaxTokens:   tier.MaxTokens,
	})
	if err != nil {
		o.recordTierCall(tier, "error", 0, 0, 0)
		return TierResult{}, true, &TierError{TierID: tier.ID, Backend: tier.Backend, Err: err}
	}

	var content strings.Builder
	var usage *backends.TokenUsage
	finishReason := ""
	for chunk := range chunks {
		if chunk.Err != nil {
			o.recordTierCall(tier, "error", time.Since(callStart), 0, 0)
			return TierResult{}, true, &TierError{TierID: tier.ID, Backend: tier.Backend, Err: chunk.Err}
		}
		if chunk.Delta != "" {
			content.WriteString(chunk.Delta)
			if !emit(Event{Type: EventChunk, TierID: tier.ID, Delta: chunk.Delta}) {
				return TierResult{}, false, nil
			}
		}
		if chunk.Done {
			finishReason = chunk.FinishReason
			usage = chunk.Usage
		}
	}

	tr := TierResult{
		TierID:  tier.ID,
		Backend: tier.Backend,
		Model:   tier.Model,
		Content: content.String(),
		Latency: time.Since(callStart),
	}
	if usage != nil {
		tr.Usage = *usage
	} else {
		// Streaming backends do not always report usage; estimate from text.
		tr.Usage = estimateUsage(query, tr.Content)
	}
	tr.Cost = tierCost(tier, tr.Usage)
	if finishReason == "" {
		finishReason = backends.FinishReasonStop
	}
	tr.finishReason = finishReason
	o.recordTierCall(tier, "success", tr.Latency, tr.Usage.TotalTokens, tr.Cost)
	return tr, true, nil
}

// finishReasonOf recovers the finish reason recorded on a streamed tier result.
func finishReasonOf(tr TierResult) string {
	if tr.finishReason != "" {
		return tr.finishReason
	}
	return backends.FinishReasonStop
}
