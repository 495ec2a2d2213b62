package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

type providerStub struct {
	name string
	chat func(ctx context.Context, opts *Options) (*StandardResult, error)
}

func (p *providerStub) Name() string { return p.name }

func (p *providerStub) Chat(ctx context.Context, opts *Options) (*StandardResult, error) {
	return p.chat(ctx, opts)
}

func validOptions() *Options {
	return &Options{
		APIKey:   "key",
		Model:    "gpt-4",
		Messages: []Message{{Role: "user", Content: "hi"}},
	}
}

func TestRegistryChatAppliesDefaultsToCopy(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&providerStub{name: "stub", chat: func(_ context.Context, opts *Options) (*StandardResult, error) {
		if opts.Temperature != 1.0 {
			t.Errorf("expected default temperature, got %v", opts.Temperature)
		}
		if opts.HTTPClient == nil {
			t.Errorf("expected default HTTP client")
		}
		return &StandardResult{Content: "ok"}, nil
	}})

	opts := validOptions()
	result, err := r.Chat(context.Background(), "stub", opts)
	if err != nil {
		t.Fatalf("chat returned error: %v", err)
	}
	if result.Content != "ok" {
		t.Fatalf("unexpected content %q", result.Content)
	}
	if opts.Temperature != 0 || opts.HTTPClient != nil {
		t.Fatalf("caller options were mutated: %#v", opts)
	}
}

func TestRegistryChatValidation(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&providerStub{name: "stub", chat: func(context.Context, *Options) (*StandardResult, error) {
		t.Fatal("provider must not be called with invalid options")
		return nil, nil
	}})

	cases := map[string]func(o *Options){
		"APIKey":      func(o *Options) { o.APIKey = "" },
		"Model":       func(o *Options) { o.Model = "" },
		"Messages":    func(o *Options) { o.Messages = nil },
		"Temperature": func(o *Options) { o.Temperature = 3 },
		"TopP":        func(o *Options) { o.TopP = 1.5 },
		"MaxTokens":   func(o *Options) { o.MaxTokens = -1 },
	}
	for field, mutate := range cases {
		opts := validOptions()
		mutate(opts)
		_, err := r.Chat(context.Background(), "stub", opts)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != field {
			t.Fatalf("%s: expected validation error, got %v", field, err)
		}
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	t.Parallel()

	if _, err := NewRegistry().Chat(context.Background(), "missing", validOptions()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestRegistryWrapsProviderError(t *testing.T) {
	t.Parallel()

	sentinel := &APIError{Provider: "stub", StatusCode: 500, Response: "boom"}
	r := NewRegistry()
	r.Register(&providerStub{name: "stub", chat: func(context.Context, *Options) (*StandardResult, error) {
		return nil, sentinel
	}})

	_, err := r.Chat(context.Background(), "stub", validOptions())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr != sentinel {
		t.Fatalf("expected wrapped API error, got %v", err)
	}
}

func TestRegistryList(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&providerStub{name: "openai"})
	r.Register(&providerStub{name: "claude"})

	if got := r.List(); !reflect.DeepEqual(got, []string{"claude", "openai"}) {
		t.Fatalf("unexpected list %v", got)
	}
}

func TestPostJSONAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "1" || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected headers %v", r.Header)
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer server.Close()

	var out map[string]interface{}
	err := PostJSON(context.Background(), server.Client(), "stub", server.URL, http.Header{"X-Test": {"1"}}, map[string]string{"a": "b"}, &out)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized || apiErr.Response != "bad key" {
		t.Fatalf("expected API error, got %v", err)
	}
}
