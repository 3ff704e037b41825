package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"medinsight/api/internal/handle"
	"medinsight/api/internal/httpserver"
	"medinsight/api/internal/logger"
	"medinsight/api/internal/telegram"
)

const shutdownGrace = 10 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (and the Telegram bot when configured)",
	Long: `Start the HTTP API and static web app.

Routes:
  POST /analyze         analyze an uploaded image
  POST /text-to-speech  synthesize a spoken summary
  POST /reset           acknowledge a client reset
  GET  /health, /version
  GET  /history, /stats (need DATABASE_URL)

When TELEGRAM_BOT_TOKEN is set, the bot runs alongside the server using
long polling. SIGINT and SIGTERM shut both down gracefully.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadConfig(true)
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := buildApp(ctx, cfg, log, true)
	if err != nil {
		log.Error("startup failed", "error", err)
		return err
	}
	defer a.Close()

	hopts := handle.Options{
		Analyzer: a.svc,
		Speech:   a.tts,
		Log:      log.With("component", "http"),
		Info: handle.Info{
			Provider: cfg.LLMProvider,
			Model:    a.svc.Model(),
			Port:     cfg.Port,
		},
		SpeechTimeout:  cfg.TTSTimeout,
		SpeechMaxChars: cfg.TTSMaxChars,
	}
	if a.repo != nil {
		hopts.History = a.repo
	}
	router, stopRouter := httpserver.NewRouter(httpserver.RouterOptions{
		Handle:        handle.New(hopts),
		Log:           log.With("component", "http"),
		PublicDir:     cfg.PublicDir,
		RateEvery:     cfg.RateLimitEvery,
		RateBurst:     cfg.RateLimitBurst,
		MaxConcurrent: cfg.MaxConcurrentAnalyses,
	})
	defer stopRouter()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.prompts.Watch(ctx, log.With("component", "prompt")); err != nil {
		log.Warn("prompt overrides will not hot-reload", "dir", cfg.PromptDir, "error", err)
	}

	var bot *telegram.Router
	botDone := make(chan struct{})
	if cfg.TelegramToken != "" {
		bot, err = startBot(ctx, a, log.With("component", "telegram"), botDone)
		if err != nil {
			log.Error("telegram bot disabled", "error", err)
			close(botDone)
		}
	} else {
		close(botDone)
	}

	srv := httpserver.New(":"+cfg.Port, router, log)
	err = srv.Run(ctx, shutdownGrace)
	cancel()
	<-botDone
	if bot != nil {
		bot.Wait()
	}
	if err != nil {
		log.Error("http server failed", "error", err)
		return err
	}
	log.Info("shutdown complete")
	return nil
}

func startBot(ctx context.Context, a *app, log *logger.Logger, done chan struct{}) (*telegram.Router, error) {
	api, err := tgbotapi.NewBotAPI(a.cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	api.Debug = false
	log.Info("telegram bot authorized", "username", api.Self.UserName)

	r := telegram.NewRouter(telegram.Options{
		Bot:           api,
		Analyzer:      a.svc,
		Speech:        a.tts,
		Log:           log,
		SpeechTimeout: a.cfg.TTSTimeout,
		SpeechLimit:   a.cfg.TTSMaxChars,
		MaxImageBytes: a.cfg.MaxImageBytes,
	})
	go func() {
		defer close(done)
		telegram.RunPolling(ctx, api, log, r.HandleUpdate)
	}()
	return r, nil
}
