package segment

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Span is a caller-supplied, language-tagged time range in seconds.
type Span struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Language string  `json:"language"`
}

// ParseSpans decodes a JSON array of spans.
func ParseSpans(data []byte) ([]Span, error) {
	var spans []Span
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, &ValidationError{Field: "spans", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return spans, nil
}

// OverlapPolicy decides what happens when a span starts before the
// previous one ended.
type OverlapPolicy int

const (
	// OverlapReject fails the whole request with a ValidationError.
	OverlapReject OverlapPolicy = iota

	// OverlapLiteral emits the overlapping span as-is and moves the cursor
	// to its end, so time may be covered more than once.
	OverlapLiteral
)

// ParseOverlapPolicy parses "reject" or "literal".
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch s {
	case "", "reject":
		return OverlapReject, nil
	case "literal":
		return OverlapLiteral, nil
	}
	return OverlapReject, fmt.Errorf("unknown overlap policy %q", s)
}

func (p OverlapPolicy) String() string {
	if p == OverlapLiteral {
		return "literal"
	}
	return "reject"
}

// Interval is one labelled piece of a Partition, covering [Start, End).
type Interval struct {
	Start    float64  `json:"start"`
	End      float64  `json:"end"`
	Language Language `json:"language"`
}

// Partition is an ordered sequence of intervals.
type Partition []Interval

// Contiguous reports whether the intervals tile [0, duration) with no gaps
// and no overlaps.
func (p Partition) Contiguous(duration float64) bool {
	if len(p) == 0 {
		return false
	}
	if p[0].Start != 0 || p[len(p)-1].End != duration {
		return false
	}
	for i := 1; i < len(p); i++ {
		if p[i].Start != p[i-1].End {
			return false
		}
	}
	return true
}

// Normalizer builds partitions from raw spans.
type Normalizer struct {
	// Languages resolves span tags. Zero value means DefaultLanguages().
	Languages Languages

	// Policy handles overlapping spans.
	Policy OverlapPolicy
}

// Normalize partitions [0, duration) with the default normalizer.
func Normalize(spans []Span, duration float64) (Partition, error) {
	return Normalizer{}.Normalize(spans, duration)
}

type indexedSpan struct {
	index      int
	start, end float64
	language   Language
}

// Normalize validates spans, sorts them by start time and fills every gap
// with a primary interval. Each span keeps the language of its tag.
//
// Spans are clamped to [0, duration]. A span that is empty after clamping,
// a non-finite value or an unknown language tag rejects the whole input.
func (n Normalizer) Normalize(spans []Span, duration float64) (Partition, error) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return nil, &ValidationError{Field: "duration", Message: "must be a positive number of seconds"}
	}

	langs := n.Languages
	if langs == (Languages{}) {
		langs = DefaultLanguages()
	}

	sorted := make([]indexedSpan, 0, len(spans))
	for i, s := range spans {
		field := fmt.Sprintf("spans[%d]", i)
		if !finite(s.Start) || !finite(s.End) {
			return nil, &ValidationError{Field: field, Message: "start and end must be finite numbers"}
		}
		lang, err := langs.Parse(s.Language)
		if err != nil {
			return nil, &ValidationError{Field: field, Message: err.Error()}
		}

		start := math.Max(s.Start, 0)
		end := math.Min(s.End, duration)
		if end <= start {
			return nil, &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("end (%g) must be greater than start (%g) within [0, %g]", s.End, s.Start, duration),
			}
		}
		sorted = append(sorted, indexedSpan{index: i, start: start, end: end, language: lang})
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].start < sorted[j].start
	})

	partition := make(Partition, 0, 2*len(sorted)+1)
	cursor := 0.0
	for _, s := range sorted {
		if s.start < cursor && n.Policy == OverlapReject {
			return nil, &ValidationError{
				Field:   fmt.Sprintf("spans[%d]", s.index),
				Message: fmt.Sprintf("starts at %g, before the previous span ends at %g", s.start, cursor),
			}
		}
		if s.start > cursor {
			partition = append(partition, Interval{Start: cursor, End: s.start, Language: Primary})
		}
		partition = append(partition, Interval{Start: s.start, End: s.end, Language: s.language})
		cursor = s.end
	}
	if cursor < duration {
		partition = append(partition, Interval{Start: cursor, End: duration, Language: Primary})
	}

	return partition, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
