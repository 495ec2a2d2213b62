package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/xifan2333/gapcapture/pkgs/asr"
	"github.com/xifan2333/gapcapture/pkgs/segment"
)

type transcriberStub struct {
	transcribe func(ctx context.Context, audio []byte, filename, language string) (string, error)
}

func (s *transcriberStub) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	return s.transcribe(ctx, audio, filename, language)
}

type encoderStub struct {
	fail map[int]error
}

func (e *encoderStub) Encode(seg segment.Segment) ([]byte, error) {
	if err := e.fail[seg.Index]; err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("seg-%d", seg.Index)), nil
}

func (e *encoderStub) Filename(seg segment.Segment) string {
	return fmt.Sprintf("segment-%03d.wav", seg.Index)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeSegments(n int) []segment.Segment {
	segs := make([]segment.Segment, n)
	for i := range segs {
		lang := segment.Primary
		if i%2 == 1 {
			lang = segment.Secondary
		}
		segs[i] = segment.Segment{
			Index:      i,
			StartTime:  float64(i),
			EndTime:    float64(i + 1),
			Language:   lang,
			SampleRate: 16000,
		}
	}
	return segs
}

func TestDispatchOrderIndependent(t *testing.T) {
	t.Parallel()

	faker := gofakeit.New(7)
	delays := make([]time.Duration, 6)
	for i := range delays {
		delays[i] = time.Duration(faker.IntRange(0, 20)) * time.Millisecond
	}

	d := &Dispatcher{
		Transcriber: &transcriberStub{transcribe: func(_ context.Context, audio []byte, _ string, language string) (string, error) {
			var idx int
			fmt.Sscanf(string(audio), "seg-%d", &idx)
			time.Sleep(delays[idx])
			return fmt.Sprintf("%s%d", language, idx), nil
		}},
		Encoder:   &encoderStub{},
		Languages: segment.DefaultLanguages(),
		Logger:    discardLogger(),
	}

	results := d.Dispatch(context.Background(), makeSegments(6))
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}

	got := Reassemble(results).Text
	if want := "pt0 en1 pt2 en3 pt4 en5"; got != want {
		t.Fatalf("unexpected transcript %q, want %q", got, want)
	}

	// Reassembly of any permutation yields the same text.
	faker.ShuffleAnySlice(results)
	if again := Reassemble(results).Text; again != got {
		t.Fatalf("reassembly depends on arrival order: %q vs %q", again, got)
	}
}

func TestDispatchIsolatesFailures(t *testing.T) {
	t.Parallel()

	d := &Dispatcher{
		Transcriber: &transcriberStub{transcribe: func(_ context.Context, _ []byte, filename, _ string) (string, error) {
			switch filename {
			case "segment-001.wav":
				return "", &asr.APIError{StatusCode: 500, Response: "boom"}
			case "segment-003.wav":
				panic("provider exploded")
			}
			return "ok " + filename, nil
		}},
		Encoder:   &encoderStub{fail: map[int]error{2: errors.New("disk full")}},
		Languages: segment.DefaultLanguages(),
		Logger:    discardLogger(),
	}

	sorted := Sort(d.Dispatch(context.Background(), makeSegments(5)))

	if sorted[0].Failed() || sorted[0].Text != "ok segment-000.wav" {
		t.Fatalf("unexpected result 0: %#v", sorted[0])
	}
	if !sorted[1].Failed() || !strings.HasPrefix(sorted[1].Text, "[ERROR: ") || !strings.Contains(sorted[1].Text, "boom") {
		t.Fatalf("unexpected result 1: %#v", sorted[1])
	}
	if !sorted[2].Failed() || !strings.Contains(sorted[2].Error, "encode: disk full") {
		t.Fatalf("unexpected result 2: %#v", sorted[2])
	}
	if !sorted[3].Failed() || !strings.Contains(sorted[3].Error, "provider exploded") {
		t.Fatalf("unexpected result 3: %#v", sorted[3])
	}
	if sorted[4].Failed() || sorted[4].Text != "ok segment-004.wav" {
		t.Fatalf("unexpected result 4: %#v", sorted[4])
	}
	for _, r := range sorted {
		if r.LanguageCode == "" || r.ProcessingTime < 0 {
			t.Fatalf("result missing metadata: %#v", r)
		}
	}
}

func TestDispatchSegmentTimeout(t *testing.T) {
	t.Parallel()

	d := &Dispatcher{
		Transcriber: &transcriberStub{transcribe: func(ctx context.Context, _ []byte, filename, _ string) (string, error) {
			if filename == "segment-000.wav" {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "fast", nil
		}},
		Encoder: &encoderStub{},
		Timeout: 20 * time.Millisecond,
		Logger:  discardLogger(),
	}

	sorted := Sort(d.Dispatch(context.Background(), makeSegments(2)))
	if !sorted[0].Failed() || !strings.Contains(sorted[0].Error, context.DeadlineExceeded.Error()) {
		t.Fatalf("expected deadline failure, got %#v", sorted[0])
	}
	if sorted[1].Failed() || sorted[1].Text != "fast" {
		t.Fatalf("sibling affected by timeout: %#v", sorted[1])
	}
}

func TestDispatchConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		inFlight int
		peak     int
		calls    atomic.Int32
	)
	d := &Dispatcher{
		Transcriber: &transcriberStub{transcribe: func(context.Context, []byte, string, string) (string, error) {
			calls.Add(1)
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return "x", nil
		}},
		Encoder:       &encoderStub{},
		MaxConcurrent: 2,
		Logger:        discardLogger(),
	}

	d.Dispatch(context.Background(), makeSegments(8))
	if calls.Load() != 8 {
		t.Fatalf("expected 8 calls, got %d", calls.Load())
	}
	if peak > 2 {
		t.Fatalf("concurrency limit exceeded: peak %d", peak)
	}
}

func TestDispatchEmpty(t *testing.T) {
	t.Parallel()

	d := &Dispatcher{Encoder: &encoderStub{}, Logger: discardLogger()}
	if got := d.Dispatch(context.Background(), nil); len(got) != 0 {
		t.Fatalf("expected no results, got %v", got)
	}
}

func TestReassembleStableOnTies(t *testing.T) {
	t.Parallel()

	results := []Result{
		{Index: 2, StartTime: 1, Text: "c"},
		{Index: 0, StartTime: 0, Text: "a"},
		{Index: 1, StartTime: 1, Text: "b"},
		{Index: 3, StartTime: 2, Text: "  "},
		{Index: 4, StartTime: 3, Text: "d"},
	}

	got := Reassemble(results)
	if got.Text != "a b c d" {
		t.Fatalf("unexpected transcript %q", got.Text)
	}
	if got.Results[1].Index != 1 || got.Results[2].Index != 2 {
		t.Fatalf("ties not ordered by index: %#v", got.Results)
	}
	if results[0].Index != 2 {
		t.Fatal("input slice was reordered")
	}
}

func TestReassembleKeepsTextVerbatim(t *testing.T) {
	t.Parallel()

	got := Reassemble([]Result{{Index: 0, StartTime: 0, EndTime: 4, Text: " Olá, tudo bem? "}})
	if got.Text != " Olá, tudo bem? " {
		t.Fatalf("single segment text was altered: %q", got.Text)
	}

	got = Reassemble([]Result{
		{Index: 1, StartTime: 2, Text: "the kitchen "},
		{Index: 0, StartTime: 0, Text: "Eu fui"},
	})
	if got.Text != "Eu fui the kitchen " {
		t.Fatalf("unexpected transcript %q", got.Text)
	}
}

func TestSecondary(t *testing.T) {
	t.Parallel()

	results := []Result{
		{Index: 2, StartTime: 5, Language: segment.Secondary, Text: "  and   what I'm going to... "},
		{Index: 0, StartTime: 0, Language: segment.Primary, Text: "Eu quero"},
		{Index: 1, StartTime: 3, Language: segment.Secondary, Text: "the kitchen."},
	}

	got := Secondary(results)
	if len(got) != 2 {
		t.Fatalf("expected 2 secondary results, got %d", len(got))
	}
	if got[0].Index != 1 || got[0].NormalizedText != "the kitchen" || got[0].Text != "the kitchen." {
		t.Fatalf("unexpected first result %#v", got[0])
	}
	if got[1].NormalizedText != "and what I'm going to" {
		t.Fatalf("unexpected normalized text %q", got[1].NormalizedText)
	}
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                    "",
		"  hello  ":           "hello",
		"Hello, world!?":      "Hello, world",
		"one\t two \n three.": "one two three",
		"wait...":             "wait",
	}
	for in, want := range cases {
		if got := NormalizeText(in); got != want {
			t.Errorf("NormalizeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestASRTranscriber(t *testing.T) {
	t.Parallel()

	registry := asr.NewRegistry()
	registry.Register(&asrProviderStub{})

	tr := &ASRTranscriber{Registry: registry, Provider: "stub"}
	text, err := tr.Transcribe(context.Background(), []byte("RIFF"), "a.wav", "en")
	if err != nil {
		t.Fatalf("transcribe returned error: %v", err)
	}
	if text != "en:a.wav" {
		t.Fatalf("unexpected text %q", text)
	}

	if _, err := (&ASRTranscriber{Registry: registry, Provider: "missing"}).Transcribe(context.Background(), []byte("x"), "a.wav", "pt"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

type asrProviderStub struct{}

func (p *asrProviderStub) Name() string { return "stub" }

func (p *asrProviderStub) Fetch(_ context.Context, req *asr.Request, _ asr.FetchOptions) (asr.RawResult, error) {
	return req.Language + ":" + req.Filename, nil
}

func (p *asrProviderStub) Parse(raw asr.RawResult) (*asr.StandardResult, error) {
	return &asr.StandardResult{Text: raw.(string)}, nil
}
