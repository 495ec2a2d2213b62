// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/xifan2333/gapcapture/pkgs/segment"
)

// Config holds every setting of the service.
type Config struct {
	Server    ServerConfig
	ASR       ASRConfig
	LLM       LLMConfig
	Languages segment.Languages
	Pipeline  PipelineConfig
	History   HistoryConfig
	Log       LogConfig
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string
	StaticDir      string
	AllowedOrigins []string
	MaxUploadBytes int64
}

// ASRConfig selects and configures the speech-to-text provider.
type ASRConfig struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// LLMConfig selects and configures the text-generation provider.
type LLMConfig struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// PipelineConfig tunes request processing.
type PipelineConfig struct {
	OverlapPolicy         segment.OverlapPolicy
	SegmentTimeout        time.Duration
	RequestTimeout        time.Duration
	MaxConcurrentSegments int
	TranslationEnabled    bool
	GrammarEnabled        bool
	SentenceTranslation   bool
	PromptDir             string
	TempDir               string
	FFmpegPath            string
}

// HistoryConfig selects the history backend.
type HistoryConfig struct {
	Backend           string
	File              string
	RedisAddr         string
	RedisKey          string
	CassandraHosts    []string
	CassandraKeyspace string
}

// LogConfig configures slog.
type LogConfig struct {
	Level  string
	Format string
}

// History backends.
const (
	HistoryFile      = "file"
	HistoryRedis     = "redis"
	HistoryCassandra = "cassandra"
	HistoryNone      = "none"
)

var (
	defaultOrigins = []string{
		"http://localhost:8000",
		"http://localhost:3000",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
	}

	asrProviders     = []string{"openai", "elevenlabs"}
	llmProviders     = []string{"openai", "claude", "gemini"}
	historyBackends  = []string{HistoryFile, HistoryRedis, HistoryCassandra, HistoryNone}
	logLevels        = []string{"debug", "info", "warn", "error"}
	logFormats       = []string{"text", "json"}
	llmKeyFallbacks  = map[string]string{"openai": "OPENAI_API_KEY", "claude": "ANTHROPIC_API_KEY", "gemini": "GEMINI_API_KEY"}
	asrKeyByProvider = map[string]string{"openai": "OPENAI_API_KEY", "elevenlabs": "ELEVENLABS_API_KEY"}
	defaultLLMModels = map[string]string{"openai": "gpt-4", "claude": "claude-3-5-sonnet-latest", "gemini": "gemini-1.5-flash"}
)

// ValidationError reports an invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "config: " + e.Field + ": " + e.Message
}

// Load reads envFiles (default ".env") with godotenv and then the process
// environment. Process variables win over file values. Missing files are
// skipped.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	fileVals := map[string]string{}
	for _, f := range envFiles {
		vals, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, ok := fileVals[k]; !ok {
				fileVals[k] = v
			}
		}
	}

	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVals[key]
		return v, ok
	})
}

// FromLookup builds and validates a Config from lookup.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	e := env{lookup: lookup}

	cfg := &Config{
		Server: ServerConfig{
			Addr:           e.str("GAPCAPTURE_ADDR", ":8000"),
			StaticDir:      e.str("GAPCAPTURE_STATIC_DIR", "frontend"),
			AllowedOrigins: e.list("GAPCAPTURE_ALLOWED_ORIGINS", defaultOrigins),
			MaxUploadBytes: int64(e.integer("GAPCAPTURE_MAX_UPLOAD_MB", 64)) << 20,
		},
		ASR: ASRConfig{
			Provider: strings.ToLower(e.str("ASR_PROVIDER", "openai")),
			Model:    e.str("ASR_MODEL", ""),
			BaseURL:  e.str("ASR_BASE_URL", ""),
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(e.str("LLM_PROVIDER", "openai")),
			Model:    e.str("LLM_MODEL", ""),
			BaseURL:  e.str("LLM_BASE_URL", ""),
		},
		Languages: segment.Languages{
			PrimaryCode:   e.str("PRIMARY_LANGUAGE", "pt"),
			PrimaryName:   e.str("PRIMARY_LANGUAGE_NAME", "Portuguese"),
			SecondaryCode: e.str("SECONDARY_LANGUAGE", "en"),
			SecondaryName: e.str("SECONDARY_LANGUAGE_NAME", "English"),
		},
		Pipeline: PipelineConfig{
			SegmentTimeout:        e.duration("SEGMENT_TIMEOUT", 2*time.Minute),
			RequestTimeout:        e.duration("REQUEST_TIMEOUT", 10*time.Minute),
			MaxConcurrentSegments: e.integer("MAX_CONCURRENT_SEGMENTS", 8),
			TranslationEnabled:    e.boolean("TRANSLATION_ENABLED", true),
			GrammarEnabled:        e.boolean("GRAMMAR_ENABLED", true),
			SentenceTranslation:   e.boolean("SENTENCE_TRANSLATION_ENABLED", false),
			PromptDir:             e.str("PROMPT_DIR", ""),
			TempDir:               e.str("GAPCAPTURE_TEMP_DIR", ""),
			FFmpegPath:            e.str("FFMPEG_PATH", "ffmpeg"),
		},
		History: HistoryConfig{
			Backend:           strings.ToLower(e.str("HISTORY_BACKEND", HistoryFile)),
			File:              e.str("HISTORY_FILE", "data/transcripts.json"),
			RedisAddr:         e.str("REDIS_ADDR", "localhost:6379"),
			RedisKey:          e.str("REDIS_KEY", "gapcapture:transcripts"),
			CassandraHosts:    e.list("CASSANDRA_HOSTS", nil),
			CassandraKeyspace: e.str("CASSANDRA_KEYSPACE", "gapcapture"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(e.str("LOG_LEVEL", "info")),
			Format: strings.ToLower(e.str("LOG_FORMAT", "text")),
		},
	}

	if key, ok := asrKeyByProvider[cfg.ASR.Provider]; ok {
		cfg.ASR.APIKey = e.str(key, "")
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultLLMModels[cfg.LLM.Provider]
	}
	cfg.LLM.APIKey = e.str("LLM_API_KEY", "")
	if cfg.LLM.APIKey == "" {
		if key, ok := llmKeyFallbacks[cfg.LLM.Provider]; ok {
			cfg.LLM.APIKey = e.str(key, "")
		}
	}

	policy, err := segment.ParseOverlapPolicy(e.str("SPAN_OVERLAP_POLICY", "reject"))
	if err != nil {
		e.fail("SPAN_OVERLAP_POLICY", err.Error())
	}
	cfg.Pipeline.OverlapPolicy = policy

	if e.err != nil {
		return nil, e.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UsesLLM reports whether any post-processing stage is enabled.
func (c *Config) UsesLLM() bool {
	return c.Pipeline.TranslationEnabled || c.Pipeline.GrammarEnabled || c.Pipeline.SentenceTranslation
}

// Validate checks enum values, durations and required credentials.
func (c *Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return &ValidationError{Field: "GAPCAPTURE_ADDR", Message: "must not be empty"}
	case c.Server.MaxUploadBytes <= 0:
		return &ValidationError{Field: "GAPCAPTURE_MAX_UPLOAD_MB", Message: "must be positive"}
	case !oneOf(c.ASR.Provider, asrProviders):
		return &ValidationError{Field: "ASR_PROVIDER", Message: fmt.Sprintf("must be one of %v", asrProviders)}
	case c.ASR.Provider == "openai" && c.ASR.APIKey == "":
		return &ValidationError{Field: "OPENAI_API_KEY", Message: "required for the openai speech-to-text provider"}
	case !oneOf(c.LLM.Provider, llmProviders):
		return &ValidationError{Field: "LLM_PROVIDER", Message: fmt.Sprintf("must be one of %v", llmProviders)}
	case c.UsesLLM() && c.LLM.APIKey == "":
		return &ValidationError{Field: "LLM_API_KEY", Message: "required when post-processing is enabled"}
	case c.UsesLLM() && c.LLM.Model == "":
		return &ValidationError{Field: "LLM_MODEL", Message: "must not be empty"}
	case c.Languages.PrimaryCode == "" || c.Languages.SecondaryCode == "":
		return &ValidationError{Field: "PRIMARY_LANGUAGE", Message: "language codes must not be empty"}
	case strings.EqualFold(c.Languages.PrimaryCode, c.Languages.SecondaryCode):
		return &ValidationError{Field: "SECONDARY_LANGUAGE", Message: "must differ from PRIMARY_LANGUAGE"}
	case c.Pipeline.SegmentTimeout <= 0:
		return &ValidationError{Field: "SEGMENT_TIMEOUT", Message: "must be positive"}
	case c.Pipeline.RequestTimeout <= 0:
		return &ValidationError{Field: "REQUEST_TIMEOUT", Message: "must be positive"}
	case c.Pipeline.MaxConcurrentSegments < 0:
		return &ValidationError{Field: "MAX_CONCURRENT_SEGMENTS", Message: "must not be negative"}
	case !oneOf(c.History.Backend, historyBackends):
		return &ValidationError{Field: "HISTORY_BACKEND", Message: fmt.Sprintf("must be one of %v", historyBackends)}
	case c.History.Backend == HistoryFile && c.History.File == "":
		return &ValidationError{Field: "HISTORY_FILE", Message: "required for the file backend"}
	case c.History.Backend == HistoryRedis && c.History.RedisAddr == "":
		return &ValidationError{Field: "REDIS_ADDR", Message: "required for the redis backend"}
	case c.History.Backend == HistoryCassandra && len(c.History.CassandraHosts) == 0:
		return &ValidationError{Field: "CASSANDRA_HOSTS", Message: "required for the cassandra backend"}
	case !oneOf(c.Log.Level, logLevels):
		return &ValidationError{Field: "LOG_LEVEL", Message: fmt.Sprintf("must be one of %v", logLevels)}
	case !oneOf(c.Log.Format, logFormats):
		return &ValidationError{Field: "LOG_FORMAT", Message: fmt.Sprintf("must be one of %v", logFormats)}
	}
	return nil
}

// NewLogger builds the service logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// env reads typed values and keeps the first parse error.
type env struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *env) fail(field, msg string) {
	if e.err == nil {
		e.err = &ValidationError{Field: field, Message: msg}
	}
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) list(key string, def []string) []string {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (e *env) integer(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, "must be an integer")
		return def
	}
	return n
}

func (e *env) boolean(key string, def bool) bool {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, "must be a boolean")
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, "must be a Go duration such as 90s or 2m")
		return def
	}
	return d
}
