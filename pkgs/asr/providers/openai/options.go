package openai

import (
	"net/http"
	"time"

	"github.com/xifan2333/gapcapture/pkgs/asr"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
	defaultTimeout = 5 * time.Minute
)

// Options contains OpenAI-specific fetch options.
type Options struct {
	// APIKey is the bearer token. Required.
	APIKey string

	// Model is the transcription model. Default: "whisper-1".
	Model string

	// BaseURL of an OpenAI-compatible API. Default: "https://api.openai.com/v1".
	BaseURL string

	// Prompt is optional context text passed to the model.
	Prompt string

	// Temperature is the sampling temperature (0 to 1). Zero leaves the
	// service default.
	Temperature float64

	// HTTPClient overrides the client used for requests.
	// Default: a client with a five minute timeout.
	HTTPClient *http.Client
}

// Validate validates the options and sets default values.
func (o *Options) Validate() error {
	if o.APIKey == "" {
		return &asr.ValidationError{Field: "APIKey", Message: "API key is required"}
	}
	if o.Model == "" {
		o.Model = defaultModel
	}
	if o.BaseURL == "" {
		o.BaseURL = defaultBaseURL
	}
	if o.Temperature < 0 || o.Temperature > 1 {
		return &asr.ValidationError{Field: "Temperature", Message: "must be between 0 and 1"}
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return nil
}
