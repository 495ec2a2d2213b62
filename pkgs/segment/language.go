// Package segment turns caller-supplied language spans into a complete,
// ordered partition of a recording and slices decoded audio along it.
//
// The partition always covers [0, duration) exactly once: every input span
// becomes an interval in its tagged language (usually secondary) and every
// gap between spans is filled with a primary-language interval.
//
// Example usage:
//
//	spans, err := segment.ParseSpans([]byte(`[{"start":3,"end":5,"language":"english"}]`))
//	if err != nil {
//	    return err
//	}
//	partition, err := segment.Normalize(spans, 10)
//	if err != nil {
//	    return err
//	}
//	segments, err := segment.Split(samples, 16000, partition)
package segment

import (
	"fmt"
	"strings"
)

// Language is the role a stretch of audio plays in the recording.
type Language int

const (
	// Primary is the dominant language of the recording.
	Primary Language = iota

	// Secondary is the inserted or foreign language marked by spans.
	Secondary
)

// String returns "primary" or "secondary".
func (l Language) String() string {
	switch l {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return fmt.Sprintf("language(%d)", int(l))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Language) MarshalText() ([]byte, error) {
	switch l {
	case Primary, Secondary:
		return []byte(l.String()), nil
	default:
		return nil, fmt.Errorf("unknown language %d", int(l))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Language) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "primary":
		*l = Primary
	case "secondary":
		*l = Secondary
	default:
		return fmt.Errorf("unknown language %q", string(text))
	}
	return nil
}

// Languages maps the two language roles to concrete languages.
//
// Codes are sent to the speech-to-text service as hints; names are used in
// prompts and accepted as span tags.
type Languages struct {
	PrimaryCode   string
	PrimaryName   string
	SecondaryCode string
	SecondaryName string
}

// DefaultLanguages returns the Portuguese/English pairing.
func DefaultLanguages() Languages {
	return Languages{
		PrimaryCode:   "pt",
		PrimaryName:   "Portuguese",
		SecondaryCode: "en",
		SecondaryName: "English",
	}
}

// Code returns the language hint code for l.
func (ls Languages) Code(l Language) string {
	if l == Secondary {
		return ls.SecondaryCode
	}
	return ls.PrimaryCode
}

// Name returns the human-readable language name for l.
func (ls Languages) Name(l Language) string {
	if l == Secondary {
		return ls.SecondaryName
	}
	return ls.PrimaryName
}

// Parse resolves a span tag to a language role.
//
// Accepted values (case-insensitive): "primary", "secondary", the configured
// codes and the configured names.
func (ls Languages) Parse(tag string) (Language, error) {
	t := strings.ToLower(strings.TrimSpace(tag))
	switch {
	case t == "":
		return Primary, fmt.Errorf("language is required")
	case t == "primary", matches(t, ls.PrimaryCode, ls.PrimaryName):
		return Primary, nil
	case t == "secondary", matches(t, ls.SecondaryCode, ls.SecondaryName):
		return Secondary, nil
	}
	return Primary, fmt.Errorf("unknown language %q", tag)
}

func matches(tag string, candidates ...string) bool {
	for _, c := range candidates {
		if c != "" && tag == strings.ToLower(c) {
			return true
		}
	}
	return false
}
