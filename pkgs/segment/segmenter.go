package segment

import (
	"errors"
	"math"
)

// ErrEmptyWaveform is returned by Split when there is nothing to slice.
var ErrEmptyWaveform = errors.New("waveform is empty")

// Segment is one slice of decoded audio, the unit of transcription work.
//
// StartTime and EndTime are the interval boundaries in seconds, kept
// independent of the rounded sample boundaries. Samples shares the
// waveform's backing array and must be treated as read-only.
type Segment struct {
	Index       int
	StartTime   float64
	EndTime     float64
	Language    Language
	SampleRate  int
	StartSample int
	EndSample   int
	Samples     [][2]float64
}

// Duration returns the length of the interval in seconds.
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// SampleIndex converts t seconds to a sample index, rounding to the nearest
// sample and clamping to [0, n].
func SampleIndex(t float64, sampleRate, n int) int {
	i := int(math.Round(t * float64(sampleRate)))
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// Split slices samples along the partition, one Segment per interval.
func Split(samples [][2]float64, sampleRate int, partition Partition) ([]Segment, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyWaveform
	}
	if sampleRate <= 0 {
		return nil, &ValidationError{Field: "sample_rate", Message: "must be positive"}
	}

	n := len(samples)
	segments := make([]Segment, 0, len(partition))
	for i, iv := range partition {
		from := SampleIndex(iv.Start, sampleRate, n)
		to := SampleIndex(iv.End, sampleRate, n)
		if to < from {
			to = from
		}
		segments = append(segments, Segment{
			Index:       i,
			StartTime:   iv.Start,
			EndTime:     iv.End,
			Language:    iv.Language,
			SampleRate:  sampleRate,
			StartSample: from,
			EndSample:   to,
			Samples:     samples[from:to:to],
		})
	}
	return segments, nil
}
