// Package gemini provides an LLM provider for Google's Gemini
// generateContent API.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/xifan2333/gapcapture/pkgs/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Provider implements the LLM provider interface for Gemini.
type Provider struct{}

// Ensure Provider implements llm.Provider interface at compile time.
var _ llm.Provider = (*Provider)(nil)

func init() {
	llm.Register(&Provider{})
}

// Name returns "gemini".
func (p *Provider) Name() string {
	return "gemini"
}

// Chat performs a chat completion using the Gemini API.
func (p *Provider) Chat(ctx context.Context, opts *llm.Options) (*llm.StandardResult, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(baseURL, "/"), url.PathEscape(opts.Model))

	header := http.Header{}
	header.Set("x-goog-api-key", opts.APIKey)

	var apiResp geminiResponse
	if err := llm.PostJSON(ctx, opts.HTTPClient, p.Name(), endpoint, header, p.buildRequest(opts), &apiResp); err != nil {
		return nil, err
	}

	if len(apiResp.Candidates) == 0 {
		return nil, &llm.ResponseError{Provider: p.Name(), Message: "no candidates in response"}
	}

	candidate := apiResp.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return nil, &llm.ResponseError{Provider: p.Name(), Message: "no parts in candidate content"}
	}

	var content strings.Builder
	for _, part := range candidate.Content.Parts {
		content.WriteString(part.Text)
	}

	result := &llm.StandardResult{
		Content:      content.String(),
		FinishReason: candidate.FinishReason,
		Model:        apiResp.ModelVersion,
		Raw:          apiResp,
	}
	if apiResp.UsageMetadata.PromptTokenCount > 0 {
		result.Usage = llm.Usage{
			PromptTokens:     apiResp.UsageMetadata.PromptTokenCount,
			CompletionTokens: apiResp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      apiResp.UsageMetadata.TotalTokenCount,
		}
	}

	return result, nil
}

func (p *Provider) buildRequest(opts *llm.Options) map[string]interface{} {
	req := map[string]interface{}{
		"contents": p.convertMessages(opts.Messages),
	}

	genConfig := make(map[string]interface{})
	if opts.Temperature > 0 {
		genConfig["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		genConfig["maxOutputTokens"] = opts.MaxTokens
	}
	if opts.TopP > 0 {
		genConfig["topP"] = opts.TopP
	}
	if len(opts.Stop) > 0 {
		genConfig["stopSequences"] = opts.Stop
	}
	if len(genConfig) > 0 {
		req["generationConfig"] = genConfig
	}

	if opts.SystemPrompt != "" {
		req["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]interface{}{{"text": opts.SystemPrompt}},
		}
	}

	for k, v := range opts.Extra {
		req[k] = v
	}

	return req
}

// convertMessages maps roles onto Gemini's "user" and "model".
func (p *Provider) convertMessages(messages []llm.Message) []map[string]interface{} {
	contents := make([]map[string]interface{}, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "system" {
			continue
		}
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, map[string]interface{}{
			"role":  role,
			"parts": []map[string]interface{}{{"text": msg.Content}},
		})
	}
	return contents
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
			Role string `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}
