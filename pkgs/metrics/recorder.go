// Package metrics records wall-clock timings of pipeline stages.
package metrics

import (
	"log/slog"
	"sync"
	"time"
)

// Stage names used by the request pipeline.
const (
	StageParsing             = "parsing"
	StageAudioLoading        = "audio_loading"
	StageSegmentation        = "segmentation"
	StageTranscription       = "transcription"
	StageTranslation         = "translation"
	StageGrammarCorrection   = "grammar_correction"
	StageSentenceTranslation = "sentence_translation"
)

// Recorder measures named stages of one request.
//
// Misuse (stopping a stage twice, reading a stage that never ran) is logged
// and ignored; a Recorder never returns an error to its caller.
type Recorder struct {
	mu      sync.Mutex
	now     func() time.Time
	started time.Time
	running map[string]time.Time
	elapsed map[string]float64
	logger  *slog.Logger
}

// NewRecorder starts the request clock.
func NewRecorder(logger *slog.Logger) *Recorder {
	return newRecorder(logger, time.Now)
}

func newRecorder(logger *slog.Logger, now func() time.Time) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		now:     now,
		started: now(),
		running: make(map[string]time.Time),
		elapsed: make(map[string]float64),
		logger:  logger,
	}
}

// Start begins timing stage and returns the function that stops it.
// Restarting a stage that already finished accumulates into it.
func (r *Recorder) Start(stage string) func() {
	r.mu.Lock()
	if _, ok := r.running[stage]; ok {
		r.mu.Unlock()
		r.logger.Warn("metrics stage already running", "stage", stage)
		return func() {}
	}
	r.running[stage] = r.now()
	r.mu.Unlock()

	var once sync.Once
	return func() {
		stopped := false
		once.Do(func() {
			r.stop(stage)
			stopped = true
		})
		if !stopped {
			r.logger.Warn("metrics stage stopped twice", "stage", stage)
		}
	}
}

func (r *Recorder) stop(stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	began, ok := r.running[stage]
	if !ok {
		r.logger.Warn("metrics stage was not running", "stage", stage)
		return
	}
	delete(r.running, stage)
	r.elapsed[stage] += r.now().Sub(began).Seconds()
}

// Time runs fn as stage and returns fn's error.
func (r *Recorder) Time(stage string, fn func() error) error {
	stop := r.Start(stage)
	defer stop()
	return fn()
}

// Elapsed returns the seconds recorded for stage.
func (r *Recorder) Elapsed(stage string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.elapsed[stage]
	if !ok {
		r.logger.Debug("metrics stage has no timing", "stage", stage)
	}
	return v
}

// Snapshot returns a copy of every finished stage's seconds.
func (r *Recorder) Snapshot() map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]float64, len(r.elapsed))
	for k, v := range r.elapsed {
		out[k] = v
	}
	return out
}

// Total returns the seconds since the recorder was created.
func (r *Recorder) Total() float64 {
	return r.now().Sub(r.started).Seconds()
}
