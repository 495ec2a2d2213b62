package elevenlabs

import (
	"strings"

	"github.com/xifan2333/gapcapture/pkgs/asr"
)

// parse converts ElevenLabs's raw response to standardized format
func parse(response map[string]interface{}) (*asr.StandardResult, error) {
	text, ok := response["text"].(string)
	if !ok {
		return nil, &asr.ParseError{Provider: providerName, Message: "missing text field in response"}
	}

	result := &asr.StandardResult{Text: strings.TrimSpace(text)}

	if langCode, ok := response["language_code"].(string); ok {
		result.Language = langCode
	}

	wordsRaw, _ := response["words"].([]interface{})
	result.Words = make([]asr.Word, 0, len(wordsRaw))
	for _, wordRaw := range wordsRaw {
		word, ok := wordRaw.(map[string]interface{})
		if !ok {
			continue
		}
		// Spacing and audio-event entries carry no speech.
		if kind, _ := word["type"].(string); kind != "" && kind != "word" {
			continue
		}

		wordText, _ := word["text"].(string)
		start, _ := word["start"].(float64)
		end, _ := word["end"].(float64)

		w := asr.Word{
			Text:  wordText,
			Start: int64(start * 1000),
			End:   int64(end * 1000),
		}
		if speakerID, ok := word["speaker_id"].(string); ok && speakerID != "" {
			w.SpeakerID = speakerID
		}
		result.Words = append(result.Words, w)
	}

	if n := len(result.Words); n > 0 {
		result.Duration = result.Words[n-1].End
	}

	return result, nil
}
