// Package llm provides a unified chat-completion interface over multiple
// LLM providers.
//
// Providers register themselves in init() and are looked up by name, so the
// service can switch between OpenAI, Claude and Gemini through configuration:
//
//	import (
//	    "github.com/xifan2333/gapcapture/pkgs/llm"
//	    _ "github.com/xifan2333/gapcapture/pkgs/llm/providers/openai"
//	)
//
//	result, err := llm.Chat(ctx, "openai", &llm.Options{
//	    APIKey:    key,
//	    Model:     "gpt-4",
//	    MaxTokens: 50,
//	    Messages:  []llm.Message{{Role: "user", Content: "Translate: olá"}},
//	})
package llm

import (
	"context"
	"net/http"
)

// Provider defines the interface that all LLM providers must implement.
type Provider interface {
	// Name returns the provider's unique identifier, e.g. "openai".
	Name() string

	// Chat performs one non-streaming completion. opts has already been
	// validated and belongs to this call.
	Chat(ctx context.Context, opts *Options) (*StandardResult, error)
}

// Options contains unified options for LLM requests.
//
// Some providers ignore fields they do not support.
type Options struct {
	// BaseURL overrides the provider's default endpoint. Useful for
	// OpenAI-compatible third-party APIs and tests.
	BaseURL string

	// APIKey is the authentication API key. Required.
	APIKey string

	// Model is the model identifier. Required.
	//
	// Examples:
	//   - OpenAI: "gpt-4", "gpt-4o-mini"
	//   - Claude: "claude-3-5-sonnet-latest"
	//   - Gemini: "gemini-1.5-flash"
	Model string

	// Messages is the conversation. Must contain at least one message.
	Messages []Message

	// Temperature controls randomness (0.0 to 2.0). Default: 1.0
	Temperature float64

	// MaxTokens caps the completion length. Zero uses the provider default.
	MaxTokens int

	// TopP controls nucleus sampling (0.0 to 1.0).
	TopP float64

	// Stop is a list of sequences where generation stops.
	Stop []string

	// SystemPrompt is a system-level instruction. Providers with a
	// dedicated system parameter use it; others prepend a system message.
	SystemPrompt string

	// Extra contains provider-specific request fields.
	Extra map[string]interface{}

	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
}

// Message represents a single message in the conversation.
type Message struct {
	// Role is "system", "user" or "assistant".
	Role string `json:"role"`

	Content string `json:"content"`

	// Name is an optional sender name. Not supported by all providers.
	Name string `json:"name,omitempty"`
}

// StandardResult represents the unified completion result.
type StandardResult struct {
	// Content is the generated text.
	Content string `json:"content,omitempty"`

	// FinishReason indicates why generation stopped, e.g. "stop" or "length".
	FinishReason string `json:"finish_reason,omitempty"`

	Usage Usage `json:"usage,omitempty"`

	// Model is the model that served the request.
	Model string `json:"model,omitempty"`

	// Raw contains the decoded provider response for debugging.
	Raw interface{} `json:"raw,omitempty"`
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Validate validates the options and sets default values.
//
// Returns a *ValidationError if required fields are missing or invalid.
func (o *Options) Validate() error {
	if o.APIKey == "" {
		return &ValidationError{Field: "APIKey", Message: "API key is required"}
	}

	if o.Model == "" {
		return &ValidationError{Field: "Model", Message: "model is required"}
	}

	if len(o.Messages) == 0 {
		return &ValidationError{Field: "Messages", Message: "at least one message is required"}
	}

	if o.Temperature == 0 {
		o.Temperature = 1.0
	}

	if o.Temperature < 0 || o.Temperature > 2 {
		return &ValidationError{Field: "Temperature", Message: "must be between 0 and 2"}
	}

	if o.TopP != 0 && (o.TopP < 0 || o.TopP > 1) {
		return &ValidationError{Field: "TopP", Message: "must be between 0 and 1"}
	}

	if o.MaxTokens < 0 {
		return &ValidationError{Field: "MaxTokens", Message: "must be non-negative"}
	}

	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}

	return nil
}
