package postprocess

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/xifan2333/gapcapture/pkgs/prompt"
	"github.com/xifan2333/gapcapture/pkgs/segment"
	"github.com/xifan2333/gapcapture/pkgs/transcript"
)

// TranslationErrorText replaces the translation of a phrase that could not
// be translated.
const TranslationErrorText = "Translation error"

const (
	defaultTranslateTokens = 50
	defaultTemperature     = 0.1
)

// TranslationPair is a secondary-language phrase and its translation into
// the primary language.
type TranslationPair struct {
	Index                int     `json:"index"`
	SourceText           string  `json:"source_text"`
	SourceTextNormalized string  `json:"source_text_normalized"`
	TranslatedText       string  `json:"translated_text"`
	StartTime            float64 `json:"start_time"`
	EndTime              float64 `json:"end_time"`
	Error                string  `json:"error,omitempty"`
}

// Translator translates secondary-language results one call per phrase.
// Failures stay local to their phrase.
type Translator struct {
	Generator Generator
	Prompts   *prompt.Manager
	Languages segment.Languages

	// MaxTokens and Temperature default to 50 and 0.1.
	MaxTokens   int
	Temperature float64

	// MaxConcurrent limits in-flight calls. Zero or negative is unbounded.
	MaxConcurrent int

	Logger *slog.Logger
}

// Translate returns one pair per input, in input order. Results whose
// transcription failed are not sent and get the error sentinel.
func (t *Translator) Translate(ctx context.Context, phrases []transcript.SecondaryResult) []TranslationPair {
	logger := loggerOrDefault(t.Logger)
	pairs := make([]TranslationPair, len(phrases))

	forEach(len(phrases), t.MaxConcurrent, func(i int) {
		p := phrases[i]
		pair := TranslationPair{
			Index:                p.Index,
			SourceText:           p.Text,
			SourceTextNormalized: p.NormalizedText,
			StartTime:            p.StartTime,
			EndTime:              p.EndTime,
		}

		switch {
		case p.Failed():
			pair.TranslatedText = TranslationErrorText
			pair.Error = p.Error
		case p.NormalizedText == "":
			// Nothing was said; there is nothing to translate.
		default:
			text, err := t.translate(ctx, p.NormalizedText)
			if err != nil {
				logger.Error("translation failed", "segment", p.Index, "error", err)
				pair.TranslatedText = TranslationErrorText
				pair.Error = err.Error()
			} else {
				pair.TranslatedText = text
			}
		}

		pairs[i] = pair
	})

	return pairs
}

func (t *Translator) translate(ctx context.Context, text string) (string, error) {
	rendered, err := t.Prompts.Render(prompt.Translate, map[string]interface{}{
		"text":            text,
		"source_language": t.Languages.Name(segment.Secondary),
		"target_language": t.Languages.Name(segment.Primary),
	})
	if err != nil {
		return "", err
	}

	return t.Generator.Generate(ctx, GenerateRequest{
		SystemPrompt: rendered.System,
		UserPrompt:   rendered.User,
		MaxTokens:    orInt(t.MaxTokens, defaultTranslateTokens),
		Temperature:  orFloat(t.Temperature, defaultTemperature),
	})
}

// forEach runs fn for every index in [0, n) with at most limit in flight.
func forEach(n, limit int, fn func(i int)) {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
