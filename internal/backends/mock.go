// Package backends provides in-process mock backends for testing the
// cascade pipeline without network round-trips.
package backends

import (
	"context"
	"strings"
	"sync"
	"time"

	"mercator-hq/saturn/pkg/backends"
)

// MockResponse scripts one answer the mock backend will return.
type MockResponse struct {
	// Content is the answer text.
	Content string

	// FinishReason defaults to "stop".
	FinishReason string

	// Usage defaults to an estimate from the content length.
	Usage *backends.TokenUsage

	// Logprobs are per-token log-probabilities to report.
	Logprobs []backends.TokenLogprob

	// Delay simulates backend latency before responding.
	Delay time.Duration

	// Err, when set, fails the call instead of answering.
	Err error
}

// MockBackend is a scripted in-process backend. Responses are consumed in
// FIFO order; when the script runs out, the last response repeats. Safe for
// concurrent use.
type MockBackend struct {
	name string

	mu        sync.Mutex
	responses []MockResponse
	calls     int
	requests  []*backends.GenerateRequest
}

// NewMockBackend creates a mock backend that plays back the given responses.
func NewMockBackend(name string, responses ...MockResponse) *MockBackend {
	return &MockBackend{name: name, responses: responses}
}

// Name implements backends.Backend.
func (m *MockBackend) Name() string { return m.name }

// Close implements backends.Backend.
func (m *MockBackend) Close() error { return nil }

// Calls returns how many times Generate or StreamGenerate was invoked.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns every request received, in order.
func (m *MockBackend) Requests() []*backends.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]*backends.GenerateRequest, len(m.requests))
	copy(reqs, m.requests)
	return reqs
}

// next pops the next scripted response.
func (m *MockBackend) next(req *backends.GenerateRequest) MockResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.requests = append(m.requests, req)

	if len(m.responses) == 0 {
		return MockResponse{Content: "mock response"}
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp
}

// Generate implements backends.Backend.
func (m *MockBackend) Generate(ctx context.Context, req *backends.GenerateRequest) (*backends.GenerateResponse, error) {
	scripted := m.next(req)
	if scripted.Delay > 0 {
		select {
		case <-time.After(scripted.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if scripted.Err != nil {
		return nil, scripted.Err
	}

	usage := scripted.Usage
	if usage == nil {
		words := len(strings.Fields(scripted.Content))
		usage = &backends.TokenUsage{
			PromptTokens:     10,
			CompletionTokens: words,
			TotalTokens:      10 + words,
		}
	}
	finishReason := scripted.FinishReason
	if finishReason == "" {
		finishReason = backends.FinishReasonStop
	}
	return &backends.GenerateResponse{
		ID:           "mock-1",
		Model:        req.Model,
		Content:      scripted.Content,
		FinishReason: finishReason,
		Usage:        *usage,
		Logprobs:     scripted.Logprobs,
		Latency:      scripted.Delay,
	}, nil
}

// StreamGenerate implements backends.Backend, splitting the scripted content
// into word-sized chunks.
func (m *MockBackend) StreamGenerate(ctx context.Context, req *backends.GenerateRequest) (<-chan *backends.StreamChunk, error) {
	scripted := m.next(req)
	if scripted.Err != nil {
		return nil, scripted.Err
	}

	out := make(chan *backends.StreamChunk)
	go func() {
		defer close(out)
		if scripted.Delay > 0 {
			select {
			case <-time.After(scripted.Delay):
			case <-ctx.Done():
				return
			}
		}
		words := strings.Fields(scripted.Content)
		for i, w := range words {
			delta := w
			if i < len(words)-1 {
				delta += " "
			}
			select {
			case out <- &backends.StreamChunk{Delta: delta}:
			case <-ctx.Done():
				return
			}
		}
		finishReason := scripted.FinishReason
		if finishReason == "" {
			finishReason = backends.FinishReasonStop
		}
		final := &backends.StreamChunk{Done: true, FinishReason: finishReason, Usage: scripted.Usage}
		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()
	return out, nil
}
