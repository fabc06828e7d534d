package backends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request body not JSON: %v", err)
		}
		fmt.Fprintf(w, `{
			"id": "cmpl-1",
			"model": %q,
			"choices": [{
				"message": {"role": "assistant", "content": %q},
				"finish_reason": "stop",
				"logprobs": {"content": [
					{"token": "4", "logprob": -0.02}
				]}
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 1, "total_tokens": 13}
		}`, req["model"], content)
	}
}

func TestHTTPBackendGenerate(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "4"))
	defer server.Close()

	b, err := NewHTTPBackend(HTTPConfig{Name: "test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPBackend: %v", err)
	}
	defer b.Close()

	resp, err := b.Generate(context.Background(), &GenerateRequest{
		Model:    "test-model",
		Messages: UserMessage("What is 2+2?"),
		Logprobs: true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "4" || resp.FinishReason != FinishReasonStop {
		t.Errorf("response = %+v", resp)
	}
	if resp.Usage.TotalTokens != 13 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if len(resp.Logprobs) != 1 || resp.Logprobs[0].Token != "4" {
		t.Errorf("logprobs = %+v", resp.Logprobs)
	}
}

func TestHTTPBackendSendsAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		completionHandler(t, "ok")(w, r)
	}))
	defer server.Close()

	b, err := NewHTTPBackend(HTTPConfig{Name: "test", BaseURL: server.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewHTTPBackend: %v", err)
	}
	defer b.Close()

	if _, err := b.Generate(context.Background(), &GenerateRequest{Model: "m", Messages: UserMessage("hi")}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestHTTPBackendErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		headers    map[string]string
		wantClass  ErrorClass
		checkError func(t *testing.T, err error)
	}{
		{
			name:      "rate limited with retry-after",
			status:    http.StatusTooManyRequests,
			headers:   map[string]string{"Retry-After": "7"},
			wantClass: ClassRateLimit,
			checkError: func(t *testing.T, err error) {
				var rl *RateLimitError
				if !errors.As(err, &rl) || rl.RetryAfter != 7*time.Second {
					t.Errorf("retry-after not parsed: %v", err)
				}
			},
		},
		{name: "unauthorized", status: http.StatusUnauthorized, wantClass: ClassAuth},
		{name: "model missing", status: http.StatusNotFound, wantClass: ClassNotFound},
		{name: "invalid request", status: http.StatusBadRequest, wantClass: ClassBadRequest},
		{name: "server failure", status: http.StatusServiceUnavailable, wantClass: ClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			b, err := NewHTTPBackend(HTTPConfig{Name: "test", BaseURL: server.URL})
			if err != nil {
				t.Fatalf("NewHTTPBackend: %v", err)
			}
			defer b.Close()

			_, err = b.Generate(context.Background(), &GenerateRequest{Model: "m", Messages: UserMessage("hi")})
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := Classify(err); got != tt.wantClass {
				t.Errorf("Classify = %s, want %s", got, tt.wantClass)
			}
			if tt.checkError != nil {
				tt.checkError(t, err)
			}
		})
	}
}

func TestHTTPBackendStreamGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`{"choices":[{"delta":{"content":"The answer"}}]}`,
			`{"choices":[{"delta":{"content":" is 4."}}]}`,
			`{"choices":[{"delta":{"content":""},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}}`,
		}
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	b, err := NewHTTPBackend(HTTPConfig{Name: "test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPBackend: %v", err)
	}
	defer b.Close()

	chunks, err := b.StreamGenerate(context.Background(), &GenerateRequest{Model: "m", Messages: UserMessage("What is 2+2?")})
	if err != nil {
		t.Fatalf("StreamGenerate: %v", err)
	}

	var content strings.Builder
	var finish string
	var usage *TokenUsage
	for chunk := range chunks {
		if chunk.Err != nil {
			t.Fatalf("chunk error: %v", chunk.Err)
		}
		content.WriteString(chunk.Delta)
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}

	if content.String() != "The answer is 4." {
		t.Errorf("reassembled content = %q", content.String())
	}
	if finish != FinishReasonStop {
		t.Errorf("finish reason = %q", finish)
	}
	if usage == nil || usage.TotalTokens != 16 {
		t.Errorf("usage = %+v", usage)
	}
}
