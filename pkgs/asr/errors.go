package asr

import "fmt"

// ValidationError reports a bad request or bad provider options.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// FetchError wraps a failure while talking to the service. Step names the
// part of the upload that failed, e.g. "http_request".
type FetchError struct {
	Provider string
	Step     string
	Message  string
	Err      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Provider, e.Step, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a response that does not have the expected shape.
type ParseError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s response: %s", e.Provider, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// APIError is a non-200 answer from the service. Response holds the
// service's error message, or the raw body when it has none.
type APIError struct {
	Provider   string
	StatusCode int
	Response   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Response)
}
