// Package pipeline turns one uploaded recording into a RequestResult:
// parse and normalize spans, decode audio, split, transcribe concurrently,
// reassemble, post-process and persist.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xifan2333/gapcapture/pkgs/audio"
	"github.com/xifan2333/gapcapture/pkgs/history"
	"github.com/xifan2333/gapcapture/pkgs/metrics"
	"github.com/xifan2333/gapcapture/pkgs/postprocess"
	"github.com/xifan2333/gapcapture/pkgs/segment"
	"github.com/xifan2333/gapcapture/pkgs/transcript"
)

// Upload is the raw form data of one request.
type Upload struct {
	RequestID string
	Audio     []byte
	Spans     string
	Duration  string
}

// Processor runs the recording pipeline. Optional stages are disabled by
// leaving their field nil.
type Processor struct {
	Languages     segment.Languages
	OverlapPolicy segment.OverlapPolicy

	// Transcoder converts non-WAV uploads. Nil accepts WAV only.
	Transcoder audio.Transcoder
	TempDir    string

	Transcriber    transcript.Transcriber
	SegmentTimeout time.Duration
	MaxConcurrent  int

	// RequestTimeout bounds the whole request. Zero means no bound.
	RequestTimeout time.Duration

	Translator *postprocess.Translator
	Grammar    *postprocess.GrammarCorrector
	Sentences  *postprocess.SentenceTranslator

	History        history.Store
	HistoryBackend string

	Logger *slog.Logger

	// NewEncoder builds the per-request segment encoder. Nil uses a WAV
	// encoder matching the upload's format.
	NewEncoder func(w *audio.Waveform) transcript.Encoder

	now func() time.Time
}

// Process runs the pipeline for up. Every error returned is a *StageError.
func (p *Processor) Process(ctx context.Context, up Upload) (*RequestResult, error) {
	id := up.RequestID
	if id == "" {
		id = uuid.NewString()
	}
	logger := p.logger().With("request_id", id)
	rec := metrics.NewRecorder(logger)

	if p.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.RequestTimeout)
		defer cancel()
	}

	fail := func(stage string, duration float64, spansCount int, err error) error {
		serr := &StageError{Stage: stage, RequestID: id, Duration: duration, SpansCount: spansCount, Err: err}
		logger.Error("transcription failed",
			"error", err,
			"stage", stage,
			"duration", duration,
			"spans_count", spansCount,
			"error_type", errorType(err),
		)
		return serr
	}

	// Parsing
	stop := rec.Start(metrics.StageParsing)
	duration, derr := parseDuration(up.Duration)
	spans, serr := segment.ParseSpans([]byte(up.Spans))
	switch {
	case derr != nil:
		stop()
		return nil, fail(metrics.StageParsing, 0, len(spans), derr)
	case serr != nil:
		stop()
		return nil, fail(metrics.StageParsing, duration, 0, serr)
	}
	normalizer := segment.Normalizer{Languages: p.Languages, Policy: p.OverlapPolicy}
	partition, err := normalizer.Normalize(spans, duration)
	stop()
	if err != nil {
		return nil, fail(metrics.StageParsing, duration, len(spans), err)
	}

	// Audio loading
	var waveform *audio.Waveform
	err = rec.Time(metrics.StageAudioLoading, func() error {
		var lerr error
		waveform, lerr = audio.Load(ctx, up.Audio, p.Transcoder)
		return lerr
	})
	if err != nil {
		return nil, fail(metrics.StageAudioLoading, duration, len(spans), err)
	}

	// Segmentation
	var segments []segment.Segment
	err = rec.Time(metrics.StageSegmentation, func() error {
		var serr error
		segments, serr = segment.Split(waveform.Samples, waveform.SampleRate(), partition)
		return serr
	})
	if err != nil {
		return nil, fail(metrics.StageSegmentation, duration, len(spans), err)
	}
	logger.Info("created segments", "segments", len(segments), "spans", len(spans))

	// Transcription
	dispatcher := &transcript.Dispatcher{
		Transcriber:   p.Transcriber,
		Encoder:       p.encoder(waveform),
		Languages:     p.Languages,
		Timeout:       p.SegmentTimeout,
		MaxConcurrent: p.MaxConcurrent,
		Logger:        logger,
	}
	stop = rec.Start(metrics.StageTranscription)
	assembled := transcript.Reassemble(dispatcher.Dispatch(ctx, segments))
	stop()
	secondary := transcript.Secondary(assembled.Results)

	// Translation
	translations := []postprocess.TranslationPair{}
	if p.Translator != nil && len(secondary) > 0 {
		stop = rec.Start(metrics.StageTranslation)
		translations = p.Translator.Translate(ctx, secondary)
		stop()
	}

	// Grammar correction
	corrected := assembled.Text
	if p.Grammar != nil {
		err = rec.Time(metrics.StageGrammarCorrection, func() error {
			var gerr error
			corrected, gerr = p.Grammar.Correct(ctx, assembled.Text)
			return gerr
		})
		if err != nil {
			return nil, fail(metrics.StageGrammarCorrection, duration, len(spans), err)
		}
	}

	// Sentence translation
	var (
		sentences     []string
		sentencePairs []postprocess.SentencePair
	)
	if p.Sentences != nil {
		stop = rec.Start(metrics.StageSentenceTranslation)
		sentencePairs = p.Sentences.Translate(ctx, assembled.Text)
		stop()
		for _, sp := range sentencePairs {
			sentences = append(sentences, sp.SourceText)
		}
	}

	result := &RequestResult{
		ID:                     id,
		Timestamp:              p.clock()().UTC(),
		Transcript:             corrected,
		RawTranscript:          assembled.Text,
		CorrectedTranscript:    corrected,
		Segments:               assembled.Results,
		SecondarySegments:      nonNil(secondary),
		Translations:           translations,
		OriginalSentences:      sentences,
		SentenceTranslations:   sentencePairs,
		Duration:               duration,
		AudioDuration:          waveform.Duration(),
		SampleRate:             waveform.SampleRate(),
		SpansCount:             len(spans),
		SegmentsCount:          len(segments),
		SecondarySegmentsCount: len(secondary),
		FailedSegmentsCount:    countFailed(assembled.Results),
		Timings:                rec.Snapshot(),
		TotalTime:              rec.Total(),
		SegmentTimings:         segmentTimings(assembled.Results),
	}

	p.persist(ctx, logger, result)

	logger.Info("recording processed successfully",
		"duration", duration,
		"segments_count", result.SegmentsCount,
		"secondary_segments_count", result.SecondarySegmentsCount,
		"failed_segments_count", result.FailedSegmentsCount,
		"transcription_time", rec.Elapsed(metrics.StageTranscription),
		"total_time", result.TotalTime,
	)
	return result, nil
}

// persist appends result to the history store. Failures are logged and
// deliberately dropped: the caller still gets its result.
func (p *Processor) persist(ctx context.Context, logger *slog.Logger, result *RequestResult) {
	if p.History == nil {
		return
	}

	start := time.Now()
	if err := p.appendHistory(ctx, result); err != nil {
		logger.Error("failed to save transcript", "error", err, "backend", p.HistoryBackend)
		return
	}
	logger.Debug("transcript saved", "backend", p.HistoryBackend, "elapsed", time.Since(start))
}

func (p *Processor) appendHistory(ctx context.Context, result *RequestResult) error {
	doc, err := json.Marshal(result)
	if err != nil {
		return err
	}
	// The request may have used most of its deadline; saving should not
	// be cut short by it.
	return p.History.Append(context.WithoutCancel(ctx), result.ID, doc)
}

func (p *Processor) encoder(w *audio.Waveform) transcript.Encoder {
	if p.NewEncoder != nil {
		return p.NewEncoder(w)
	}
	return audio.NewWAVEncoder(w, p.TempDir)
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Processor) clock() func() time.Time {
	if p.now == nil {
		return time.Now
	}
	return p.now
}

func parseDuration(s string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &segment.ValidationError{Field: "duration", Message: "must be a number of seconds"}
	}
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, &segment.ValidationError{Field: "duration", Message: "must be a positive number of seconds"}
	}
	return d, nil
}

func countFailed(results []transcript.Result) int {
	n := 0
	for _, r := range results {
		if r.Failed() {
			n++
		}
	}
	return n
}

func segmentTimings(results []transcript.Result) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = r.ProcessingTime
	}
	return out
}

func nonNil(s []transcript.SecondaryResult) []transcript.SecondaryResult {
	if s == nil {
		return []transcript.SecondaryResult{}
	}
	return s
}
