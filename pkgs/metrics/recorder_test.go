package metrics

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRecorder() (*Recorder, *fakeClock, *bytes.Buffer) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return newRecorder(logger, clock.now), clock, &buf
}

func TestRecorderStages(t *testing.T) {
	r, clock, _ := newTestRecorder()

	stop := r.Start(StageParsing)
	clock.advance(250 * time.Millisecond)
	stop()

	err := r.Time(StageTranscription, func() error {
		clock.advance(2 * time.Second)
		return nil
	})
	if err != nil {
		t.Fatalf("time returned error: %v", err)
	}

	want := map[string]float64{StageParsing: 0.25, StageTranscription: 2}
	if got := r.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected snapshot %v", got)
	}
	if r.Total() != 2.25 {
		t.Fatalf("unexpected total %v", r.Total())
	}
}

func TestRecorderTimeReturnsError(t *testing.T) {
	r, clock, _ := newTestRecorder()

	sentinel := errors.New("grammar failed")
	err := r.Time(StageGrammarCorrection, func() error {
		clock.advance(time.Second)
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if r.Elapsed(StageGrammarCorrection) != 1 {
		t.Fatalf("failed stage should still be timed, got %v", r.Elapsed(StageGrammarCorrection))
	}
}

func TestRecorderMisuseIsLogged(t *testing.T) {
	r, clock, buf := newTestRecorder()

	stop := r.Start(StageTranslation)
	if noop := r.Start(StageTranslation); noop == nil {
		t.Fatal("expected a stop func even when misused")
	}
	clock.advance(time.Second)
	stop()
	stop()

	if r.Elapsed(StageTranslation) != 1 {
		t.Fatalf("double stop changed timing: %v", r.Elapsed(StageTranslation))
	}
	_ = r.Elapsed("unknown")

	logs := buf.String()
	for _, msg := range []string{"already running", "stopped twice", "has no timing"} {
		if !strings.Contains(logs, msg) {
			t.Errorf("expected log %q in %q", msg, logs)
		}
	}
}

func TestRecorderAccumulates(t *testing.T) {
	r, clock, _ := newTestRecorder()

	for i := 0; i < 3; i++ {
		stop := r.Start(StageTranslation)
		clock.advance(100 * time.Millisecond)
		stop()
	}

	if got := r.Elapsed(StageTranslation); got < 0.2999 || got > 0.3001 {
		t.Fatalf("unexpected accumulated time %v", got)
	}
}
