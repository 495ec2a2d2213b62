package llm

import "fmt"

// ValidationError represents an invalid option.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + ": " + e.Message
}

// APIError represents a non-2xx response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Response   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Response)
}

// ResponseError represents a successful response that carried no usable
// completion.
type ResponseError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s response error: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s response error: %s", e.Provider, e.Message)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}
