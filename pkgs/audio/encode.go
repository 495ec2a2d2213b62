package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/xifan2333/gapcapture/pkgs/segment"
)

// WAVEncoder writes segments to WAV through a temporary file.
//
// Each call owns its temp file and removes it before returning, on success
// and on failure.
type WAVEncoder struct {
	// NumChannels and Precision of the output. Invalid values fall back to
	// mono 16-bit.
	NumChannels int
	Precision   int

	// TempDir holds the temporary files. Empty means os.TempDir().
	TempDir string
}

// NewWAVEncoder returns an encoder matching the waveform's channel layout
// and bit depth.
func NewWAVEncoder(w *Waveform, tempDir string) *WAVEncoder {
	return &WAVEncoder{
		NumChannels: w.Format.NumChannels,
		Precision:   w.Format.Precision,
		TempDir:     tempDir,
	}
}

// Filename returns the upload name used for a segment.
func (e *WAVEncoder) Filename(seg segment.Segment) string {
	return fmt.Sprintf("segment-%03d.wav", seg.Index)
}

// Encode returns the segment as a complete WAV file.
func (e *WAVEncoder) Encode(seg segment.Segment) (data []byte, err error) {
	if seg.SampleRate <= 0 {
		return nil, fmt.Errorf("segment %d has no sample rate", seg.Index)
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(seg.SampleRate),
		NumChannels: e.NumChannels,
		Precision:   e.Precision,
	}
	if format.NumChannels < 1 || format.NumChannels > 2 {
		format.NumChannels = 1
	}
	if format.Precision < 1 || format.Precision > 3 {
		format.Precision = 2
	}

	f, err := os.CreateTemp(e.TempDir, "segment-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if err := wav.Encode(f, &sampleStreamer{samples: seg.Samples}, format); err != nil {
		f.Close()
		return nil, fmt.Errorf("encode segment %d: %w", seg.Index, err)
	}
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encoded segment: %w", err)
	}
	return data, nil
}
