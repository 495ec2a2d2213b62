// Package postprocess enriches a reassembled transcript with text
// generation: per-phrase translation, a grammar-correction pass and optional
// per-sentence translation.
package postprocess

import (
	"context"
	"errors"
	"strings"

	"github.com/xifan2333/gapcapture/pkgs/llm"
)

// GenerateRequest is one text-generation call.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// ErrEmptyCompletion is returned when the model answers with blank text.
var ErrEmptyCompletion = errors.New("empty completion")

// LLMGenerator adapts a pkgs/llm provider to Generator.
type LLMGenerator struct {
	// Registry to look the provider up in. Nil uses the global registry.
	Registry *llm.Registry
	Provider string

	// Options carries connection settings (APIKey, Model, BaseURL,
	// HTTPClient). Prompt fields are filled per call on a copy.
	Options llm.Options
}

// Generate implements Generator. The returned text is trimmed.
func (g *LLMGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	opts := g.Options
	opts.SystemPrompt = req.SystemPrompt
	opts.Messages = []llm.Message{{Role: "user", Content: req.UserPrompt}}
	opts.MaxTokens = req.MaxTokens
	opts.Temperature = req.Temperature

	var (
		result *llm.StandardResult
		err    error
	)
	if g.Registry != nil {
		result, err = g.Registry.Chat(ctx, g.Provider, &opts)
	} else {
		result, err = llm.Chat(ctx, g.Provider, &opts)
	}
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(result.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
