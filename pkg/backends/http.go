package backends

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPConfig configures an OpenAI-compatible HTTP backend adapter.
type HTTPConfig struct {
	// Name is the backend identifier used in calibration tables and logs
	// (e.g., "openai", "ollama", "vllm").
	Name string

	// BaseURL is the API endpoint base URL (e.g., "https://api.openai.com/v1").
	BaseURL string

	// APIKey is the bearer token; empty for unauthenticated local backends.
	APIKey string

	// Timeout is the per-request timeout. Default: 60s.
	Timeout time.Duration

	// MaxIdleConns is the connection pool size. Default: 10.
	MaxIdleConns int
}

// HTTPBackend calls any OpenAI-compatible chat completions endpoint.
// It maps HTTP failures onto the backend error taxonomy so that the retry
// wrapper and the orchestrator can classify them; the adapter itself never
// retries.
type HTTPBackend struct {
	config HTTPConfig
	client *http.Client
}

// NewHTTPBackend creates an HTTP backend with connection pooling.
func NewHTTPBackend(config HTTPConfig) (*HTTPBackend, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("backend name cannot be empty")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("backend %q: base URL cannot be empty", config.Name)
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 10
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPBackend{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}, nil
}

// chatRequest is the wire format for the chat completions endpoint.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
	Logprobs    bool      `json:"logprobs,omitempty"`
}

// chatResponse is the wire format of a non-streaming completion.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Logprobs     *struct {
			Content []struct {
				Token   string  `json:"token"`
				Logprob float64 `json:"logprob"`
			} `json:"content"`
		} `json:"logprobs"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// chatStreamResponse is the wire format of one SSE data frame.
type chatStreamResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate sends a chat completion request and normalizes the response.
func (b *HTTPBackend) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	resp, err := b.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Backend: b.config.Name, Cause: err}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &BackendError{
			Backend: b.config.Name,
			Message: "malformed response body",
			Cause:   err,
		}
	}
	if len(parsed.Choices) == 0 {
		return nil, &BackendError{
			Backend: b.config.Name,
			Message: "response contained no choices",
		}
	}

	choice := parsed.Choices[0]
	out := &GenerateResponse{
		ID:           parsed.ID,
		Model:        parsed.Model,
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
		Latency: time.Since(start),
	}
	if choice.Logprobs != nil {
		out.Logprobs = make([]TokenLogprob, 0, len(choice.Logprobs.Content))
		for _, lp := range choice.Logprobs.Content {
			out.Logprobs = append(out.Logprobs, TokenLogprob{Token: lp.Token, Logprob: lp.Logprob})
		}
	}
	return out, nil
}

// StreamGenerate sends a streaming chat completion request and yields chunks
// over an unbuffered channel until the SSE stream terminates.
func (b *HTTPBackend) StreamGenerate(ctx context.Context, req *GenerateRequest) (<-chan *StreamChunk, error) {
	resp, err := b.post(ctx, req, true)
	if err != nil {
		return nil, err
	}

	out := make(chan *StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var frame chatStreamResponse
			if err := json.Unmarshal([]byte(data), &frame); err != nil {
				b.emit(ctx, out, &StreamChunk{Done: true, Err: &BackendError{
					Backend: b.config.Name,
					Message: "malformed stream frame",
					Cause:   err,
				}})
				return
			}

			chunk := &StreamChunk{}
			if len(frame.Choices) > 0 {
				chunk.Delta = frame.Choices[0].Delta.Content
				chunk.FinishReason = frame.Choices[0].FinishReason
				chunk.Done = frame.Choices[0].FinishReason != ""
			}
			if frame.Usage != nil {
				chunk.Usage = &TokenUsage{
					PromptTokens:     frame.Usage.PromptTokens,
					CompletionTokens: frame.Usage.CompletionTokens,
					TotalTokens:      frame.Usage.TotalTokens,
				}
			}
			if !b.emit(ctx, out, chunk) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			b.emit(ctx, out, &StreamChunk{Done: true, Err: &NetworkError{
				Backend: b.config.Name,
				Cause:   err,
			}})
		}
	}()
	return out, nil
}

// emit sends a chunk unless the context is done. Returns false to stop producing.
func (b *HTTPBackend) emit(ctx context.Context, out chan<- *StreamChunk, chunk *StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// post performs one HTTP POST to the chat completions endpoint and maps
// failure status codes onto the error taxonomy.
func (b *HTTPBackend) post(ctx context.Context, req *GenerateRequest, stream bool) (*http.Response, error) {
	payload := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
		Logprobs:    req.Logprobs,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(b.config.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.config.APIKey)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &TimeoutError{Backend: b.config.Name, Timeout: b.config.Timeout}
		}
		return nil, &NetworkError{Backend: b.config.Name, Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	errorBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	msg := strings.TrimSpace(string(errorBody))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Backend: b.config.Name, Message: msg}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{
			Backend:    b.config.Name,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    msg,
		}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Backend: b.config.Name, Resource: req.Model}
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, &BadRequestError{Backend: b.config.Name, Message: msg}
	case resp.StatusCode >= 500:
		return nil, &ServerError{Backend: b.config.Name, StatusCode: resp.StatusCode, Message: msg}
	default:
		return nil, &BackendError{Backend: b.config.Name, StatusCode: resp.StatusCode, Message: msg}
	}
}

// parseRetryAfter parses a Retry-After header value (seconds form only).
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// Name returns the backend's configured name.
func (b *HTTPBackend) Name() string {
	return b.config.Name
}

// Close closes idle connections in the pool.
func (b *HTTPBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}
