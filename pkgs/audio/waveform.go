// Package audio decodes uploaded recordings into sample buffers and encodes
// individual segments back to WAV for upload to a speech-to-text service.
//
// Decoding and encoding use github.com/gopxl/beep. Recordings that are not
// WAV can be converted first through a Transcoder such as FFmpeg.
package audio

import (
	"bytes"
	"context"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

const streamChunk = 4096

// Waveform is a fully decoded recording.
type Waveform struct {
	Format  beep.Format
	Samples [][2]float64
}

// SampleRate returns the number of samples per second.
func (w *Waveform) SampleRate() int {
	return int(w.Format.SampleRate)
}

// Len returns the number of samples.
func (w *Waveform) Len() int {
	return len(w.Samples)
}

// Duration returns the length of the recording in seconds.
func (w *Waveform) Duration() float64 {
	if w.Format.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.Format.SampleRate)
}

// Decode reads a complete WAV file into memory.
func Decode(data []byte) (*Waveform, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Message: "audio is empty"}
	}

	stream, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Message: "unreadable WAV data", Err: err}
	}
	defer stream.Close()

	samples := make([][2]float64, 0, max(stream.Len(), 0))
	buf := make([][2]float64, streamChunk)
	for {
		n, ok := stream.Stream(buf)
		samples = append(samples, buf[:n]...)
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, &DecodeError{Message: "failed to read samples", Err: err}
	}
	if len(samples) == 0 {
		return nil, &DecodeError{Message: "audio contains no samples"}
	}
	if format.SampleRate <= 0 {
		return nil, &DecodeError{Message: "audio has no sample rate"}
	}

	return &Waveform{Format: format, Samples: samples}, nil
}

// Transcoder converts arbitrary audio containers to WAV.
type Transcoder interface {
	ToWAV(ctx context.Context, data []byte) ([]byte, error)
}

// Load decodes data as WAV, falling back to the transcoder when the data is
// not WAV. A nil transcoder disables the fallback.
func Load(ctx context.Context, data []byte, transcoder Transcoder) (*Waveform, error) {
	w, err := Decode(data)
	if err == nil || transcoder == nil || len(data) == 0 {
		return w, err
	}

	converted, terr := transcoder.ToWAV(ctx, data)
	if terr != nil {
		return nil, &DecodeError{Message: "audio is not WAV and could not be transcoded", Err: terr}
	}
	return Decode(converted)
}

// sampleStreamer replays an in-memory sample slice as a beep.Streamer.
type sampleStreamer struct {
	samples [][2]float64
	pos     int
}

func (s *sampleStreamer) Stream(out [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := copy(out, s.samples[s.pos:])
	s.pos += n
	return n, true
}

func (s *sampleStreamer) Err() error {
	return nil
}
