// Package elevenlabs provides an ASR provider implementation for ElevenLabs
// speech-to-text.
//
// Features:
//   - Word-level timestamps
//   - Optional speaker diarization
//   - Language hints per request (ISO-639-1)
//   - Authenticated (xi-api-key) or unauthenticated web access
//
// Example usage:
//
//	import (
//	    "context"
//	    "github.com/xifan2333/gapcapture/pkgs/asr"
//	    "github.com/xifan2333/gapcapture/pkgs/asr/providers/elevenlabs"
//	)
//
//	opts := &elevenlabs.Options{APIKey: "xi-..."}
//	result, err := asr.Transcribe(ctx, "elevenlabs", req, opts)
package elevenlabs

import (
	"context"

	"github.com/xifan2333/gapcapture/pkgs/asr"
)

const providerName = "elevenlabs"

// Provider implements the ASR provider interface for ElevenLabs.
type Provider struct{}

// Ensure Provider implements asr.Provider interface at compile time.
var _ asr.Provider = (*Provider)(nil)

func init() {
	asr.Register(&Provider{})
}

// Name returns "elevenlabs".
func (p *Provider) Name() string {
	return providerName
}

// Fetch uploads the request audio via multipart form and returns the raw
// API response as map[string]interface{}.
//
// The request's language hint takes precedence over Options.LanguageCode.
func (p *Provider) Fetch(ctx context.Context, req *asr.Request, opts asr.FetchOptions) (asr.RawResult, error) {
	var o Options
	if given, ok := opts.(*Options); ok && given != nil {
		o = *given
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Language != "" {
		o.LanguageCode = req.Language
	}

	return fetch(ctx, req, &o)
}

// Parse converts the raw ElevenLabs response to standardized format.
//
// All timestamps are converted to milliseconds. Segments without speech
// yield empty text and no words.
func (p *Provider) Parse(raw asr.RawResult) (*asr.StandardResult, error) {
	response, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &asr.ParseError{Provider: providerName, Message: "invalid raw result type, expected map[string]interface{}"}
	}

	return parse(response)
}
