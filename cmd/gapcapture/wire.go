package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/xifan2333/gapcapture/internal/config"
	"github.com/xifan2333/gapcapture/internal/pipeline"
	"github.com/xifan2333/gapcapture/pkgs/asr"
	"github.com/xifan2333/gapcapture/pkgs/asr/providers/elevenlabs"
	"github.com/xifan2333/gapcapture/pkgs/asr/providers/openai"
	"github.com/xifan2333/gapcapture/pkgs/audio"
	"github.com/xifan2333/gapcapture/pkgs/history"
	"github.com/xifan2333/gapcapture/pkgs/llm"
	"github.com/xifan2333/gapcapture/pkgs/postprocess"
	"github.com/xifan2333/gapcapture/pkgs/prompt"
	"github.com/xifan2333/gapcapture/pkgs/transcript"
)

// asrOptions returns the fetch options for the configured provider.
func asrOptions(cfg config.ASRConfig) (asr.FetchOptions, error) {
	switch cfg.Provider {
	case "openai":
		return &openai.Options{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}, nil
	case "elevenlabs":
		return &elevenlabs.Options{APIKey: cfg.APIKey, ModelID: cfg.Model, BaseURL: cfg.BaseURL}, nil
	}
	return nil, fmt.Errorf("unsupported ASR provider %q", cfg.Provider)
}

func newHistory(ctx context.Context, cfg config.HistoryConfig, logger *slog.Logger) (history.Store, error) {
	switch cfg.Backend {
	case config.HistoryFile:
		store := history.NewFileStore(cfg.File, logger)
		logger.Info("history file", "path", store.Path())
		return store, nil
	case config.HistoryRedis:
		store, err := history.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisKey, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.HistoryCassandra:
		store, err := history.ConnectCassandra(cfg.CassandraHosts, cfg.CassandraKeyspace)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.HistoryNone:
		return history.NopStore{}, nil
	}
	return nil, fmt.Errorf("unsupported history backend %q", cfg.Backend)
}

func newPrompts(dir string) (*prompt.Manager, error) {
	prompts := prompt.Default()
	if dir == "" {
		return prompts, nil
	}
	if err := prompts.LoadFS(os.DirFS(dir), "."); err != nil {
		return nil, fmt.Errorf("load prompts from %s: %w", dir, err)
	}
	return prompts, nil
}

func newProcessor(cfg *config.Config, store history.Store, logger *slog.Logger) (*pipeline.Processor, error) {
	opts, err := asrOptions(cfg.ASR)
	if err != nil {
		return nil, err
	}

	p := &pipeline.Processor{
		Languages:     cfg.Languages,
		OverlapPolicy: cfg.Pipeline.OverlapPolicy,
		Transcoder: &audio.FFmpeg{
			Binary:  cfg.Pipeline.FFmpegPath,
			TempDir: cfg.Pipeline.TempDir,
		},
		TempDir:        cfg.Pipeline.TempDir,
		Transcriber:    &transcript.ASRTranscriber{Provider: cfg.ASR.Provider, Options: opts},
		SegmentTimeout: cfg.Pipeline.SegmentTimeout,
		MaxConcurrent:  cfg.Pipeline.MaxConcurrentSegments,
		RequestTimeout: cfg.Pipeline.RequestTimeout,
		History:        store,
		HistoryBackend: cfg.History.Backend,
		Logger:         logger,
	}
	if !cfg.UsesLLM() {
		return p, nil
	}

	prompts, err := newPrompts(cfg.Pipeline.PromptDir)
	if err != nil {
		return nil, err
	}
	gen := &postprocess.LLMGenerator{
		Provider: cfg.LLM.Provider,
		Options: llm.Options{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		},
	}

	if cfg.Pipeline.TranslationEnabled {
		p.Translator = &postprocess.Translator{
			Generator:     gen,
			Prompts:       prompts,
			Languages:     cfg.Languages,
			MaxConcurrent: cfg.Pipeline.MaxConcurrentSegments,
			Logger:        logger,
		}
	}
	if cfg.Pipeline.GrammarEnabled {
		p.Grammar = &postprocess.GrammarCorrector{
			Generator: gen,
			Prompts:   prompts,
			Languages: cfg.Languages,
			Logger:    logger,
		}
	}
	if cfg.Pipeline.SentenceTranslation {
		p.Sentences = &postprocess.SentenceTranslator{
			Generator:     gen,
			Prompts:       prompts,
			Languages:     cfg.Languages,
			MaxConcurrent: cfg.Pipeline.MaxConcurrentSegments,
			Logger:        logger,
		}
	}
	return p, nil
}
