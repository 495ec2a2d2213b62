// Package asr provides a unified interface for speech-to-text providers.
//
// Every provider accepts the same Request (encoded audio plus an optional
// language hint) and converts its service's response into a StandardResult,
// so callers can switch providers through configuration alone.
//
// Example usage:
//
//	import (
//	    "context"
//	    "github.com/xifan2333/gapcapture/pkgs/asr"
//	    "github.com/xifan2333/gapcapture/pkgs/asr/providers/openai"
//	)
//
//	func main() {
//	    ctx := context.Background()
//	    req := &asr.Request{Audio: wavBytes, Filename: "segment.wav", Language: "pt"}
//	    result, err := asr.Transcribe(ctx, "openai", req, &openai.Options{APIKey: "sk-..."})
//	    if err != nil {
//	        panic(err)
//	    }
//	    fmt.Println(result.Text)
//	}
package asr

import "context"

// Provider defines the interface that all ASR providers must implement.
//
// A provider is responsible for:
//   - Uploading audio to a speech-to-text service
//   - Parsing the service response into the standardized format
//
// Providers register themselves with Register, typically in init().
// Implementations must be safe for concurrent use: one Provider value
// serves every in-flight segment.
type Provider interface {
	// Name returns the provider's unique identifier.
	//
	// Examples: "openai", "elevenlabs"
	Name() string

	// Fetch uploads the request audio and returns the raw response.
	//
	// opts carries provider-specific options and may be nil for defaults.
	// Providers must not mutate the caller's options.
	Fetch(ctx context.Context, req *Request, opts FetchOptions) (RawResult, error)

	// Parse converts the raw response to the standardized format.
	//
	// All timestamps must be converted to milliseconds.
	Parse(raw RawResult) (*StandardResult, error)
}

// Request is one piece of audio to transcribe.
type Request struct {
	// Audio is a complete encoded audio file (e.g. WAV). Required.
	Audio []byte

	// Filename including extension, used to tell the service the format.
	// Required.
	Filename string

	// Language is an ISO-639-1 hint such as "pt" or "en".
	// Empty lets the service detect the language.
	Language string
}

// Validate checks the request.
func (r *Request) Validate() error {
	if r == nil {
		return &ValidationError{Field: "Request", Message: "request is required"}
	}
	if len(r.Audio) == 0 {
		return &ValidationError{Field: "Audio", Message: "audio data is required"}
	}
	if r.Filename == "" {
		return &ValidationError{Field: "Filename", Message: "filename is required"}
	}
	return nil
}

// FetchOptions is a unified interface for provider-specific fetch options.
//
// Validate checks the options and fills in defaults. Providers call it on a
// private copy.
type FetchOptions interface {
	Validate() error
}

// RawResult is the raw response from a provider, usually a decoded JSON
// object (map[string]interface{}).
type RawResult interface{}

// StandardResult represents the unified ASR result format.
type StandardResult struct {
	// Text is the complete transcription text.
	Text string `json:"text"`

	// Words contains word-level timestamps when the provider returns them.
	Words []Word `json:"words,omitempty"`

	// Language is the detected or requested language code.
	Language string `json:"language,omitempty"`

	// Duration of the audio in milliseconds, when reported.
	Duration int64 `json:"duration,omitempty"`
}

// Word represents word-level timestamp information in milliseconds.
type Word struct {
	Text      string `json:"text"`
	Start     int64  `json:"start"`
	End       int64  `json:"end"`
	SpeakerID string `json:"speaker_id,omitempty"`
}
