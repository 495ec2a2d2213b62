package postprocess

import (
	"context"
	"log/slog"
	"strings"

	"github.com/xifan2333/gapcapture/pkgs/prompt"
	"github.com/xifan2333/gapcapture/pkgs/segment"
)

const defaultSentenceTokens = 100

// SentencePair is one transcript sentence fully rendered in the primary
// language.
type SentencePair struct {
	SourceText     string `json:"source_text"`
	TranslatedText string `json:"translated_text"`
	Error          string `json:"error,omitempty"`
}

// SplitSentences splits text on '.', '!' and '?' and drops blank pieces.
func SplitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// SentenceTranslator translates each sentence of a transcript, replacing
// secondary-language words while leaving punctuation alone.
type SentenceTranslator struct {
	Generator Generator
	Prompts   *prompt.Manager
	Languages segment.Languages

	// MaxTokens and Temperature default to 100 and 0.1.
	MaxTokens   int
	Temperature float64

	MaxConcurrent int

	Logger *slog.Logger
}

// Translate returns one pair per sentence of text, in order.
func (s *SentenceTranslator) Translate(ctx context.Context, text string) []SentencePair {
	logger := loggerOrDefault(s.Logger)
	sentences := SplitSentences(text)
	pairs := make([]SentencePair, len(sentences))

	forEach(len(sentences), s.MaxConcurrent, func(i int) {
		pair := SentencePair{SourceText: sentences[i]}

		translated, err := s.translate(ctx, sentences[i])
		if err != nil {
			logger.Error("sentence translation failed", "sentence", i, "error", err)
			pair.TranslatedText = TranslationErrorText
			pair.Error = err.Error()
		} else {
			pair.TranslatedText = translated
		}
		pairs[i] = pair
	})

	return pairs
}

func (s *SentenceTranslator) translate(ctx context.Context, sentence string) (string, error) {
	rendered, err := s.Prompts.Render(prompt.Sentence, map[string]interface{}{
		"sentence":           sentence,
		"target_language":    s.Languages.Name(segment.Primary),
		"secondary_language": s.Languages.Name(segment.Secondary),
	})
	if err != nil {
		return "", err
	}

	return s.Generator.Generate(ctx, GenerateRequest{
		SystemPrompt: rendered.System,
		UserPrompt:   rendered.User,
		MaxTokens:    orInt(s.MaxTokens, defaultSentenceTokens),
		Temperature:  orFloat(s.Temperature, defaultTemperature),
	})
}
