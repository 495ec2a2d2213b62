// Command gapcapture serves the mixed-language recording transcription API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xifan2333/gapcapture/internal/config"
	"github.com/xifan2333/gapcapture/internal/server"

	_ "github.com/xifan2333/gapcapture/pkgs/asr/providers/elevenlabs"
	_ "github.com/xifan2333/gapcapture/pkgs/asr/providers/openai"
	_ "github.com/xifan2333/gapcapture/pkgs/llm/providers/claude"
	_ "github.com/xifan2333/gapcapture/pkgs/llm/providers/gemini"
	_ "github.com/xifan2333/gapcapture/pkgs/llm/providers/openai"
)

const shutdownTimeout = 30 * time.Second

func main() {
	envFile := flag.String("env", ".env", "path to an env file (missing files are ignored)")
	flag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, "gapcapture:", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newHistory(ctx, cfg.History, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	processor, err := newProcessor(cfg, store, logger)
	if err != nil {
		return err
	}

	srv := &server.Server{
		Processor:      processor,
		History:        store,
		StaticDir:      cfg.Server.StaticDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         logger,
	}
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", cfg.Server.Addr,
			"asr_provider", cfg.ASR.Provider,
			"llm_provider", cfg.LLM.Provider,
			"history_backend", cfg.History.Backend,
		)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
