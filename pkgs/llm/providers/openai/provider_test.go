package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xifan2333/gapcapture/pkgs/llm"
)

func newRegistry() *llm.Registry {
	r := llm.NewRegistry()
	r.Register(&Provider{})
	return r
}

func TestChat(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization %q", got)
		}

		var body struct {
			Model       string           `json:"model"`
			MaxTokens   int              `json:"max_tokens"`
			Temperature float64          `json:"temperature"`
			Messages    []map[string]any `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Model != "gpt-4" || body.MaxTokens != 50 || body.Temperature != 0.1 {
			t.Errorf("unexpected body %#v", body)
		}
		if len(body.Messages) != 2 || body.Messages[0]["role"] != "system" || body.Messages[1]["content"] != "olá" {
			t.Errorf("unexpected messages %#v", body.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4-0613",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "hello"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 1, "total_tokens": 13}
		}`))
	}))
	defer server.Close()

	result, err := newRegistry().Chat(context.Background(), "openai", &llm.Options{
		BaseURL:      server.URL,
		APIKey:       "sk-test",
		Model:        "gpt-4",
		MaxTokens:    50,
		Temperature:  0.1,
		SystemPrompt: "translate",
		Messages:     []llm.Message{{Role: "user", Content: "olá"}},
		HTTPClient:   server.Client(),
	})
	if err != nil {
		t.Fatalf("chat returned error: %v", err)
	}
	if result.Content != "hello" || result.Model != "gpt-4-0613" || result.Usage.TotalTokens != 13 {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestChatNoChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	_, err := newRegistry().Chat(context.Background(), "openai", &llm.Options{
		BaseURL:    server.URL,
		APIKey:     "sk-test",
		Model:      "gpt-4",
		Messages:   []llm.Message{{Role: "user", Content: "x"}},
		HTTPClient: server.Client(),
	})
	var rerr *llm.ResponseError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected response error, got %v", err)
	}
}

func TestChatAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	_, err := newRegistry().Chat(context.Background(), "openai", &llm.Options{
		BaseURL:    server.URL,
		APIKey:     "sk-test",
		Model:      "gpt-4",
		Messages:   []llm.Message{{Role: "user", Content: "x"}},
		HTTPClient: server.Client(),
	})
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Provider != "openai" {
		t.Fatalf("expected API error, got %v", err)
	}
}
