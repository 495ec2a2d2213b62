package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xifan2333/gapcapture/pkgs/asr"
	"github.com/xifan2333/gapcapture/pkgs/segment"
)

// Transcriber turns one encoded audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
}

// Encoder turns a segment into an uploadable audio file.
type Encoder interface {
	Encode(seg segment.Segment) ([]byte, error)
	Filename(seg segment.Segment) string
}

// ASRTranscriber adapts a pkgs/asr provider to Transcriber.
type ASRTranscriber struct {
	// Registry to look the provider up in. Nil uses the global registry.
	Registry *asr.Registry
	Provider string
	Options  asr.FetchOptions
}

// Transcribe implements Transcriber.
func (t *ASRTranscriber) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	req := &asr.Request{Audio: audio, Filename: filename, Language: language}

	var (
		result *asr.StandardResult
		err    error
	)
	if t.Registry != nil {
		result, err = t.Registry.Transcribe(ctx, t.Provider, req, t.Options)
	} else {
		result, err = asr.Transcribe(ctx, t.Provider, req, t.Options)
	}
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// Dispatcher fans segments out to a Transcriber and collects every result.
//
// Segments are independent: a failure, timeout or panic in one becomes a
// failed Result for that segment only, and siblings are never cancelled.
type Dispatcher struct {
	Transcriber Transcriber
	Encoder     Encoder
	Languages   segment.Languages

	// Timeout bounds each segment's encode and transcription. Zero means
	// no per-segment deadline beyond ctx.
	Timeout time.Duration

	// MaxConcurrent limits in-flight segments. Zero or negative is unbounded.
	MaxConcurrent int

	Logger *slog.Logger
}

// Dispatch transcribes every segment and returns one Result per segment in
// completion order. It blocks until all segments are done.
func (d *Dispatcher) Dispatch(ctx context.Context, segments []segment.Segment) []Result {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	out := make(chan Result, len(segments))

	var g errgroup.Group
	if d.MaxConcurrent > 0 {
		g.SetLimit(d.MaxConcurrent)
	}
	for _, seg := range segments {
		g.Go(func() error {
			out <- d.run(ctx, seg, logger)
			return nil
		})
	}
	_ = g.Wait()
	close(out)

	results := make([]Result, 0, len(segments))
	for r := range out {
		results = append(results, r)
	}
	return results
}

func (d *Dispatcher) run(ctx context.Context, seg segment.Segment, logger *slog.Logger) (res Result) {
	start := time.Now()
	res = Result{
		Index:        seg.Index,
		StartTime:    seg.StartTime,
		EndTime:      seg.EndTime,
		Language:     seg.Language,
		LanguageCode: d.Languages.Code(seg.Language),
	}

	defer func() {
		if p := recover(); p != nil {
			res.Text = ""
			res.fail(fmt.Errorf("panic: %v", p))
		}
		res.ProcessingTime = time.Since(start).Seconds()
		if res.Failed() {
			logger.Error("segment transcription failed",
				"segment", seg.Index,
				"language", res.LanguageCode,
				"segment_duration", seg.Duration(),
				"error", res.Error,
			)
		}
	}()

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	data, err := d.Encoder.Encode(seg)
	if err != nil {
		res.fail(fmt.Errorf("encode: %w", err))
		return res
	}

	text, err := d.Transcriber.Transcribe(ctx, data, d.Encoder.Filename(seg), res.LanguageCode)
	if err != nil {
		res.fail(err)
		return res
	}

	res.Text = text
	return res
}

func (r *Result) fail(err error) {
	r.Error = err.Error()
	r.Text = ErrorText(err)
}
