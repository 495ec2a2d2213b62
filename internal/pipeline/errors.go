package pipeline

import "fmt"

// StageError is a fatal failure of one request. It carries what the caller
// needs to retry.
type StageError struct {
	Stage      string
	RequestID  string
	Duration   float64
	SpansCount int
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
