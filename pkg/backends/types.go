package backends

import "time"

// Message represents a single message in a conversation.
// It is backend-agnostic and transformed to backend-specific formats by adapters.
type Message struct {
	// Role identifies the message sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for a single generation.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens used (prompt + completion)
	TotalTokens int `json:"total_tokens"`
}

// TokenLogprob is the log-probability the backend assigned to one sampled token.
// Not all backends report logprobs; a nil/empty slice means "unavailable".
type TokenLogprob struct {
	// Token is the sampled token text
	Token string `json:"token"`

	// Logprob is the natural-log probability of the token
	Logprob float64 `json:"logprob"`
}

// GenerateRequest is a backend-agnostic generation request for one tier call.
type GenerateRequest struct {
	// Model is the model identifier (e.g., "gpt-4o-mini", "claude-3-haiku")
	Model string `json:"model"`

	// Messages is the conversation history. For single-turn queries this is
	// a single user message.
	Messages []Message `json:"messages"`

	// Temperature controls sampling randomness (0.0 to 2.0)
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int `json:"max_tokens,omitempty"`

	// Logprobs requests per-token log-probabilities when the backend supports them
	Logprobs bool `json:"logprobs,omitempty"`

	// Metadata carries request context (request ID, tenant) that is not sent
	// to the backend.
	Metadata map[string]string `json:"-"`
}

// GenerateResponse is a backend-agnostic generation response.
type GenerateResponse struct {
	// ID is the unique response identifier assigned by the backend
	ID string `json:"id"`

	// Model is the model that generated the response
	Model string `json:"model"`

	// Content is the generated text
	Content string `json:"content"`

	// FinishReason indicates why generation stopped
	// (stop, length, content_filter)
	FinishReason string `json:"finish_reason"`

	// Usage contains token consumption information
	Usage TokenUsage `json:"usage"`

	// Logprobs contains per-token log-probabilities, if requested and supported.
	// Nil when the backend does not report them.
	Logprobs []TokenLogprob `json:"logprobs,omitempty"`

	// Latency is the wall-clock duration of the call as measured by the adapter
	Latency time.Duration `json:"-"`
}

// StreamChunk is a single increment of a streaming generation.
type StreamChunk struct {
	// Delta is the incremental content in this chunk
	Delta string `json:"delta"`

	// Done is true on the final chunk
	Done bool `json:"done"`

	// FinishReason is set on the final chunk
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is set on the final chunk when the backend reports it
	Usage *TokenUsage `json:"usage,omitempty"`

	// Err is set if the stream failed; no further chunks follow
	Err error `json:"-"`
}

// Finish reason constants
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
)

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UserMessage builds a single-turn request body from raw query text.
func UserMessage(query string) []Message {
	return []Message{{Role: RoleUser, Content: query}}
}
