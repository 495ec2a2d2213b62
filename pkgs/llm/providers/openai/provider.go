// Package openai provides an LLM provider for OpenAI chat completions.
//
// Any OpenAI-compatible endpoint works through Options.BaseURL.
//
//	import _ "github.com/xifan2333/gapcapture/pkgs/llm/providers/openai"
//
//	result, err := llm.Chat(ctx, "openai", &llm.Options{
//	    APIKey:   "sk-...",
//	    Model:    "gpt-4",
//	    Messages: []llm.Message{{Role: "user", Content: "Hello!"}},
//	})
package openai

import (
	"context"
	"net/http"
	"strings"

	"github.com/xifan2333/gapcapture/pkgs/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Provider implements the LLM provider interface for OpenAI.
type Provider struct{}

// Ensure Provider implements llm.Provider interface at compile time.
var _ llm.Provider = (*Provider)(nil)

func init() {
	llm.Register(&Provider{})
}

// Name returns "openai".
func (p *Provider) Name() string {
	return "openai"
}

// Chat performs a chat completion using the OpenAI API.
func (p *Provider) Chat(ctx context.Context, opts *llm.Options) (*llm.StandardResult, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+opts.APIKey)

	var apiResp openAIResponse
	url := strings.TrimRight(baseURL, "/") + "/chat/completions"
	if err := llm.PostJSON(ctx, opts.HTTPClient, p.Name(), url, header, p.buildRequest(opts), &apiResp); err != nil {
		return nil, err
	}

	if len(apiResp.Choices) == 0 {
		return nil, &llm.ResponseError{Provider: p.Name(), Message: "no choices in response"}
	}

	choice := apiResp.Choices[0]
	return &llm.StandardResult{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Model:        apiResp.Model,
		Usage: llm.Usage{
			PromptTokens:     apiResp.Usage.PromptTokens,
			CompletionTokens: apiResp.Usage.CompletionTokens,
			TotalTokens:      apiResp.Usage.TotalTokens,
		},
		Raw: apiResp,
	}, nil
}

// buildRequest builds the OpenAI API request body.
func (p *Provider) buildRequest(opts *llm.Options) map[string]interface{} {
	req := map[string]interface{}{
		"model":    opts.Model,
		"messages": p.convertMessages(opts),
	}

	if opts.Temperature > 0 {
		req["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		req["max_tokens"] = opts.MaxTokens
	}
	if opts.TopP > 0 {
		req["top_p"] = opts.TopP
	}
	if len(opts.Stop) > 0 {
		req["stop"] = opts.Stop
	}

	for k, v := range opts.Extra {
		req[k] = v
	}

	return req
}

// convertMessages prepends the system prompt as a system message.
func (p *Provider) convertMessages(opts *llm.Options) []map[string]interface{} {
	messages := make([]map[string]interface{}, 0, len(opts.Messages)+1)

	if opts.SystemPrompt != "" {
		messages = append(messages, map[string]interface{}{
			"role":    "system",
			"content": opts.SystemPrompt,
		})
	}

	for _, msg := range opts.Messages {
		m := map[string]interface{}{
			"role":    msg.Role,
			"content": msg.Content,
		}
		if msg.Name != "" {
			m["name"] = msg.Name
		}
		messages = append(messages, m)
	}

	return messages
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int    `json:"index"`
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
