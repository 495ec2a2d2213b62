// Package claude provides an LLM provider for Anthropic's Messages API.
//
// System prompts travel in the dedicated "system" parameter.
package claude

import (
	"context"
	"net/http"
	"strings"

	"github.com/xifan2333/gapcapture/pkgs/llm"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultAPIVersion = "2023-06-01"

	// Claude requires max_tokens on every request.
	defaultMaxTokens = 4096
)

// Provider implements the LLM provider interface for Claude.
type Provider struct{}

// Ensure Provider implements llm.Provider interface at compile time.
var _ llm.Provider = (*Provider)(nil)

func init() {
	llm.Register(&Provider{})
}

// Name returns "claude".
func (p *Provider) Name() string {
	return "claude"
}

// Chat performs a chat completion using the Claude API.
func (p *Provider) Chat(ctx context.Context, opts *llm.Options) (*llm.StandardResult, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	header := http.Header{}
	header.Set("x-api-key", opts.APIKey)
	header.Set("anthropic-version", defaultAPIVersion)

	var apiResp claudeResponse
	url := strings.TrimRight(baseURL, "/") + "/v1/messages"
	if err := llm.PostJSON(ctx, opts.HTTPClient, p.Name(), url, header, p.buildRequest(opts), &apiResp); err != nil {
		return nil, err
	}

	if len(apiResp.Content) == 0 {
		return nil, &llm.ResponseError{Provider: p.Name(), Message: "no content in response"}
	}

	var content strings.Builder
	for _, c := range apiResp.Content {
		if c.Type == "text" {
			content.WriteString(c.Text)
		}
	}

	return &llm.StandardResult{
		Content:      content.String(),
		FinishReason: apiResp.StopReason,
		Model:        apiResp.Model,
		Usage: llm.Usage{
			PromptTokens:     apiResp.Usage.InputTokens,
			CompletionTokens: apiResp.Usage.OutputTokens,
			TotalTokens:      apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
		},
		Raw: apiResp,
	}, nil
}

func (p *Provider) buildRequest(opts *llm.Options) map[string]interface{} {
	req := map[string]interface{}{
		"model":      opts.Model,
		"messages":   p.convertMessages(opts.Messages),
		"max_tokens": defaultMaxTokens,
	}

	system := opts.SystemPrompt
	for _, msg := range opts.Messages {
		if msg.Role == "system" {
			system = strings.TrimSpace(system + "\n\n" + msg.Content)
		}
	}
	if system != "" {
		req["system"] = system
	}

	if opts.Temperature > 0 {
		// Claude caps temperature at 1.
		req["temperature"] = min(opts.Temperature, 1.0)
	}
	if opts.MaxTokens > 0 {
		req["max_tokens"] = opts.MaxTokens
	}
	if opts.TopP > 0 {
		req["top_p"] = opts.TopP
	}
	if len(opts.Stop) > 0 {
		req["stop_sequences"] = opts.Stop
	}

	for k, v := range opts.Extra {
		req[k] = v
	}

	return req
}

// convertMessages drops system messages; they are folded into "system".
func (p *Provider) convertMessages(messages []llm.Message) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "system" {
			continue
		}
		result = append(result, map[string]interface{}{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}
	return result
}

type claudeResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
