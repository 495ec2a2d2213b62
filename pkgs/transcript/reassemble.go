package transcript

import (
	"sort"
	"strings"

	"github.com/xifan2333/gapcapture/pkgs/segment"
)

// Transcript is the reassembled text with its results in temporal order.
type Transcript struct {
	Text    string
	Results []Result
}

// SecondaryResult is a secondary-language result with its normalized text.
type SecondaryResult struct {
	Result
	NormalizedText string `json:"text_normalized"`
}

// Sort orders results by start time, then by dispatch index. It returns a
// new slice and leaves results untouched.
func Sort(results []Result) []Result {
	sorted := make([]Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartTime != sorted[j].StartTime {
			return sorted[i].StartTime < sorted[j].StartTime
		}
		return sorted[i].Index < sorted[j].Index
	})
	return sorted
}

// Reassemble sorts results and joins their text with single spaces.
// Texts are kept verbatim; blank ones are skipped.
func Reassemble(results []Result) Transcript {
	sorted := Sort(results)

	parts := make([]string, 0, len(sorted))
	for _, r := range sorted {
		if strings.TrimSpace(r.Text) != "" {
			parts = append(parts, r.Text)
		}
	}

	return Transcript{Text: strings.Join(parts, " "), Results: sorted}
}

// Secondary returns the secondary-language results in temporal order.
func Secondary(results []Result) []SecondaryResult {
	var out []SecondaryResult
	for _, r := range Sort(results) {
		if r.Language != segment.Secondary {
			continue
		}
		out = append(out, SecondaryResult{Result: r, NormalizedText: NormalizeText(r.Text)})
	}
	return out
}
