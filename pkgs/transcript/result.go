// Package transcript dispatches audio segments to a speech-to-text
// capability concurrently and reassembles the results into one transcript.
package transcript

import (
	"fmt"
	"strings"

	"github.com/xifan2333/gapcapture/pkgs/segment"
)

// Result is the transcription outcome of one segment.
//
// A failed segment carries Error and an in-band marker in Text so the
// transcript still shows where the gap is.
type Result struct {
	Index          int              `json:"index"`
	StartTime      float64          `json:"start_time"`
	EndTime        float64          `json:"end_time"`
	Language       segment.Language `json:"language"`
	LanguageCode   string           `json:"language_code"`
	Text           string           `json:"text"`
	ProcessingTime float64          `json:"processing_time"`
	Error          string           `json:"error,omitempty"`
}

// Failed reports whether the segment could not be transcribed.
func (r Result) Failed() bool {
	return r.Error != ""
}

// ErrorText is the marker placed in the transcript for a failed segment.
func ErrorText(err error) string {
	return fmt.Sprintf("[ERROR: %s]", err)
}

// NormalizeText trims s, strips trailing sentence punctuation and collapses
// runs of whitespace to one space. The result is what later stages match
// against grammar-corrected text.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".,;:!?")
	return strings.Join(strings.Fields(s), " ")
}
