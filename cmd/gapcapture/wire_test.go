package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/xifan2333/gapcapture/internal/config"
	"github.com/xifan2333/gapcapture/pkgs/asr/providers/elevenlabs"
	"github.com/xifan2333/gapcapture/pkgs/asr/providers/openai"
	"github.com/xifan2333/gapcapture/pkgs/history"
	"github.com/xifan2333/gapcapture/pkgs/prompt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, vars map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.FromLookup(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestASROptions(t *testing.T) {
	t.Parallel()

	opts, err := asrOptions(config.ASRConfig{Provider: "openai", APIKey: "sk-test", Model: "whisper-1"})
	if err != nil {
		t.Fatalf("openai options: %v", err)
	}
	if o, ok := opts.(*openai.Options); !ok || o.APIKey != "sk-test" || o.Model != "whisper-1" {
		t.Fatalf("unexpected openai options %#v", opts)
	}

	opts, err = asrOptions(config.ASRConfig{Provider: "elevenlabs", Model: "scribe_v1"})
	if err != nil {
		t.Fatalf("elevenlabs options: %v", err)
	}
	if o, ok := opts.(*elevenlabs.Options); !ok || o.ModelID != "scribe_v1" {
		t.Fatalf("unexpected elevenlabs options %#v", opts)
	}

	if _, err := asrOptions(config.ASRConfig{Provider: "jianying"}); err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}

func TestNewHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var logs bytes.Buffer
	path := filepath.Join(t.TempDir(), "h.json")
	store, err := newHistory(ctx, config.HistoryConfig{Backend: config.HistoryFile, File: path}, slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	if fs, ok := store.(*history.FileStore); !ok || fs.Path() != path {
		t.Fatalf("expected a FileStore at %s, got %T", path, store)
	}
	if !strings.Contains(logs.String(), path) {
		t.Fatalf("history path not logged: %q", logs.String())
	}

	store, err = newHistory(ctx, config.HistoryConfig{Backend: config.HistoryNone}, discardLogger())
	if err != nil {
		t.Fatalf("none backend: %v", err)
	}
	if _, ok := store.(history.NopStore); !ok {
		t.Fatalf("expected a NopStore, got %T", store)
	}

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	store, err = newHistory(ctx, config.HistoryConfig{Backend: config.HistoryRedis, RedisAddr: addr, RedisKey: "k"}, discardLogger())
	if err != nil {
		t.Fatalf("redis backend: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*history.RedisStore); !ok {
		t.Fatalf("expected a RedisStore, got %T", store)
	}

	mr.Close()
	if store, err := newHistory(ctx, config.HistoryConfig{Backend: config.HistoryRedis, RedisAddr: addr, RedisKey: "k"}, discardLogger()); err == nil || store != nil {
		t.Fatalf("expected a connection error, got %v, %v", store, err)
	}
}

func TestNewPromptsOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	custom := `<poml><meta><variables><var name="text" required="true"/></variables></meta><user-msg>Translate: {{ text }}</user-msg></poml>`
	if err := os.WriteFile(filepath.Join(dir, "translate.poml"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	prompts, err := newPrompts(dir)
	if err != nil {
		t.Fatalf("load prompts: %v", err)
	}
	rendered, err := prompts.Render(prompt.Translate, map[string]interface{}{"text": "the kitchen"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if rendered.User != "Translate: the kitchen" {
		t.Fatalf("override not applied: %q", rendered.User)
	}
	if _, err := prompts.Get(prompt.Grammar); err != nil {
		t.Fatalf("embedded prompts should remain: %v", err)
	}

	if _, err := newPrompts(t.TempDir()); err == nil {
		t.Fatal("expected an error for a directory without templates")
	}
}

func TestNewProcessor(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, map[string]string{
		"OPENAI_API_KEY":               "sk-test",
		"SENTENCE_TRANSLATION_ENABLED": "true",
	})
	p, err := newProcessor(cfg, history.NopStore{}, discardLogger())
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	if p.Translator == nil || p.Grammar == nil || p.Sentences == nil {
		t.Fatalf("post-processing stages missing: %#v", p)
	}
	if p.SegmentTimeout != cfg.Pipeline.SegmentTimeout || p.HistoryBackend != config.HistoryFile {
		t.Fatalf("pipeline settings not applied: %#v", p)
	}

	cfg = testConfig(t, map[string]string{
		"OPENAI_API_KEY":      "sk-test",
		"TRANSLATION_ENABLED": "false",
		"GRAMMAR_ENABLED":     "false",
	})
	p, err = newProcessor(cfg, history.NopStore{}, discardLogger())
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	if p.Translator != nil || p.Grammar != nil || p.Sentences != nil {
		t.Fatal("disabled stages should stay nil")
	}
}
