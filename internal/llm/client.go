package llm

import (
	"context"
	"strings"
)

// DefaultNativeModel is the baseline fast model. It is the fallback whenever
// a model identifier is empty or a relay model turns out to be unavailable.
const DefaultNativeModel = "gemini-2.5-flash"

// ReasoningModel is the native model used for extended-thinking requests.
const ReasoningModel = "gemini-2.5-pro"

// Attachment is a binary file sent alongside a message. Only native models
// accept inline binary data.
type Attachment struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Message represents a chat message in the normalized history. Role is
// "user" or "model".
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Citation is a source reference attached to generated text.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// StreamRequest describes one provider call.
type StreamRequest struct {
	Model        string     `json:"model"`
	Messages     []*Message `json:"messages"`
	SystemPrompt string     `json:"system_prompt,omitempty"`
	MaxTokens    int        `json:"max_tokens,omitempty"`
	// ThinkingBudget is a hint for hidden deliberation tokens; 0 disables it.
	// Native models only.
	ThinkingBudget int32 `json:"thinking_budget,omitempty"`
	// JSONResponse asks the provider for a JSON document instead of prose.
	// Used by structured calls (project manifests, study plans).
	JSONResponse bool `json:"json_response,omitempty"`
}

// StreamEvent is one element of the lazy delta sequence both provider paths
// produce: a text fragment plus any citation fragments discovered with it.
type StreamEvent struct {
	Text      string
	Citations []Citation
}

// StreamFunc consumes stream events in arrival order. Returning an error
// stops the stream.
type StreamFunc func(ev StreamEvent) error

// Client is the uniform surface over both provider paths. The orchestrator
// never branches on provider identity beyond constructing the right client.
type Client interface {
	// Stream sends a streaming request and forwards deltas to fn.
	// Cancellation of ctx terminates the sequence without an error.
	Stream(ctx context.Context, req *StreamRequest, fn StreamFunc) error
	// Complete sends a non-streaming request and returns the full text.
	Complete(ctx context.Context, req *StreamRequest) (string, error)
	// ModelName returns the model identifier this client speaks to.
	ModelName() string
}

// IsNativeModel reports whether a model identifier belongs to the native
// provider. Relay identifiers carry a vendor prefix ("vendor/model").
func IsNativeModel(model string) bool {
	model = strings.TrimSpace(model)
	if model == "" {
		return true
	}
	return !strings.Contains(model, "/") || strings.HasPrefix(strings.ToLower(model), "models/")
}
