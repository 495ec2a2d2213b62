package elevenlabs

import (
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModelID = "scribe_v1"
	defaultTimeout = 10 * time.Minute
)

// Options contains ElevenLabs-specific fetch options.
type Options struct {
	// APIKey is sent as xi-api-key. When empty the request goes through
	// the unauthenticated web endpoint with browser-like headers.
	APIKey string

	// ModelID is the speech-to-text model. Default: "scribe_v1".
	ModelID string

	// LanguageCode is used when the request carries no language hint.
	// "auto" or empty lets the service detect the language.
	// Default: "auto"
	LanguageCode string

	// Diarize asks the service to attach speaker IDs to words.
	Diarize bool

	// TagAudioEvents tags non-speech events like laughter or music.
	TagAudioEvents bool

	// BaseURL of the API. Default: "https://api.elevenlabs.io".
	BaseURL string

	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
}

// Validate validates the options and sets default values.
//
// Default values:
//   - ModelID: "scribe_v1"
//   - LanguageCode: "auto"
//   - BaseURL: "https://api.elevenlabs.io"
//
// This method always returns nil as all option combinations are valid.
func (o *Options) Validate() error {
	if o.ModelID == "" {
		o.ModelID = defaultModelID
	}
	if o.LanguageCode == "" {
		o.LanguageCode = "auto"
	}
	if o.BaseURL == "" {
		o.BaseURL = defaultBaseURL
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return nil
}
