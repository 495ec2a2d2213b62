package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpeg converts uploads to mono WAV using the ffmpeg binary.
type FFmpeg struct {
	// Binary is the ffmpeg executable. Empty means "ffmpeg" on PATH.
	Binary string

	// SampleRate of the output. Zero means 16000.
	SampleRate int

	// TempDir holds the input and output files. Empty means os.TempDir().
	TempDir string
}

var _ Transcoder = (*FFmpeg)(nil)

// ToWAV runs ffmpeg -y -i input -ac 1 -ar <rate> -f wav output.
func (f *FFmpeg) ToWAV(ctx context.Context, data []byte) ([]byte, error) {
	bin := f.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	rate := f.SampleRate
	if rate <= 0 {
		rate = 16000
	}

	dir, err := os.MkdirTemp(f.TempDir, "transcode-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input")
	out := filepath.Join(dir, "output.wav")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-y", "-i", in,
		"-ac", "1", "-ar", strconv.Itoa(rate),
		"-f", "wav",
		out,
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}

	return os.ReadFile(out)
}
