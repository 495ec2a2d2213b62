package postprocess

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xifan2333/gapcapture/pkgs/prompt"
	"github.com/xifan2333/gapcapture/pkgs/segment"
)

const defaultGrammarTokens = 300

// GrammarError reports a failed correction pass.
type GrammarError struct {
	InputLength int
	Err         error
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("grammar correction failed: %v", e.Err)
}

func (e *GrammarError) Unwrap() error {
	return e.Err
}

// GrammarCorrector runs one correction pass over the whole transcript. The
// model is told never to translate; word order and filler ellipses are
// fixed in place.
type GrammarCorrector struct {
	Generator Generator
	Prompts   *prompt.Manager
	Languages segment.Languages

	// MaxTokens and Temperature default to 300 and 0.1.
	MaxTokens   int
	Temperature float64

	Logger *slog.Logger
}

// Correct returns the corrected transcript. A blank transcript is returned
// as is without calling the model.
func (c *GrammarCorrector) Correct(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	rendered, err := c.Prompts.Render(prompt.Grammar, map[string]interface{}{
		"transcript":         text,
		"primary_language":   c.Languages.Name(segment.Primary),
		"secondary_language": c.Languages.Name(segment.Secondary),
	})
	if err != nil {
		return "", &GrammarError{InputLength: len(text), Err: err}
	}

	corrected, err := c.Generator.Generate(ctx, GenerateRequest{
		SystemPrompt: rendered.System,
		UserPrompt:   rendered.User,
		MaxTokens:    orInt(c.MaxTokens, defaultGrammarTokens),
		Temperature:  orFloat(c.Temperature, defaultTemperature),
	})
	if err != nil {
		loggerOrDefault(c.Logger).Error("grammar correction failed", "input_length", len(text), "error", err)
		return "", &GrammarError{InputLength: len(text), Err: err}
	}

	return strings.TrimSpace(corrected), nil
}
