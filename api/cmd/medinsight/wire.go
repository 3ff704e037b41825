package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"medinsight/api/internal/analysis"
	"medinsight/api/internal/config"
	"medinsight/api/internal/llm"
	"medinsight/api/internal/llm/gemini"
	"medinsight/api/internal/llm/openai"
	"medinsight/api/internal/logger"
	"medinsight/api/internal/prompt"
	"medinsight/api/internal/speech"
	"medinsight/api/internal/speech/elevenlabs"
	"medinsight/api/internal/speech/openaitts"
	"medinsight/api/internal/store"
)

// app holds everything built from one Config.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	engines *llm.Engines
	engine  llm.Engine
	prompts *prompt.Builder
	tts     speech.Synthesizer
	db      *store.DB
	repo    *store.ReportRepo
	svc     *analysis.Service
}

// loadConfig reads the environment. Commands that never call a model pass
// requireLLM=false to skip credential checks.
func loadConfig(requireLLM bool) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if !requireLLM {
		return cfg, log, nil
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		return nil, nil, err
	}
	return cfg, log, nil
}

func buildApp(ctx context.Context, cfg *config.Config, log *logger.Logger, withDB bool) (*app, error) {
	a := &app{cfg: cfg, log: log}

	a.engines = llm.NewEngines(
		openai.New(config.ProviderGroq, cfg.ChatBaseURLFor(config.ProviderGroq), cfg.GroqAPIKey, cfg.ModelFor(config.ProviderGroq), cfg.LLMTimeout),
		openai.New(config.ProviderOpenAI, cfg.ChatBaseURLFor(config.ProviderOpenAI), cfg.OpenAIAPIKey, cfg.ModelFor(config.ProviderOpenAI), cfg.LLMTimeout),
		gemini.New(cfg.GeminiAPIKey, cfg.ModelFor(config.ProviderGemini)),
	)
	eng, err := a.engines.GetEngine(cfg.LLMProvider)
	if err != nil {
		return nil, err
	}
	a.engine = eng
	a.prompts = prompt.New(cfg.PromptDir)
	a.tts = newSynthesizer(cfg)

	if withDB && cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Error("database unavailable, persistence disabled", "error", err, "dsn", safeDSNSummary(cfg.DatabaseURL))
		} else if err := db.EnsureSchema(ctx); err != nil {
			log.Error("schema setup failed, persistence disabled", "error", err)
			_ = db.Close()
		} else {
			log.Info("db connected", "dialect", db.Dialect.String(), "target", safeDSNSummary(cfg.DatabaseURL))
			a.db = db
			a.repo = store.NewReportRepo(db)
		}
	}

	opts := analysis.Options{
		Engine:        a.engine,
		Prompts:       a.prompts,
		Log:           log,
		CallTimeout:   cfg.LLMTimeout,
		MaxImageBytes: cfg.MaxImageBytes,
	}
	if a.repo != nil {
		opts.Sink = a.repo
	}
	a.svc = analysis.New(opts)

	log.Info("analysis engine ready",
		"provider", cfg.LLMProvider,
		"model", a.engine.GetModel(),
		"tts", speechName(a.tts),
		"persistence", a.repo != nil,
	)
	return a, nil
}

// Close waits for pending writes, then releases the database.
func (a *app) Close() {
	a.svc.Wait()
	if a.db != nil {
		_ = a.db.Close()
	}
	a.log.Sync()
}

func newSynthesizer(cfg *config.Config) speech.Synthesizer {
	if !cfg.SpeechEnabled() {
		return nil
	}
	switch cfg.TTSProvider {
	case config.TTSElevenLabs:
		return elevenlabs.New(elevenlabs.Config{
			APIKey:  cfg.ElevenLabsAPIKey,
			Voice:   cfg.ElevenLabsVoice,
			Model:   cfg.ElevenLabsModel,
			Timeout: cfg.TTSTimeout,
		})
	case config.TTSOpenAI:
		return openaitts.New(openaitts.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAITTSModel,
			Voice:   cfg.OpenAITTSVoice,
			Timeout: cfg.TTSTimeout,
		})
	}
	return nil
}

func speechName(s speech.Synthesizer) string {
	if s == nil {
		return "disabled"
	}
	return s.Name()
}

// safeDSNSummary describes a DSN without credentials.
func safeDSNSummary(dsn string) string {
	dialect, source, err := store.ParseDSN(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	if dialect == store.SQLite {
		path, _, _ := strings.Cut(source, "?")
		return "sqlite " + path
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
