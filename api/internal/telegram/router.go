// Package telegram is the chat front end: photo in, report and audio out.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medinsight/api/internal/analysis"
	"medinsight/api/internal/logger"
	"medinsight/api/internal/report"
	"medinsight/api/internal/speech"
	"medinsight/api/internal/upload"
)

// Bot is the part of tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (report.ClinicalReport, error)
}

type Options struct {
	Bot              Bot
	Analyzer         Analyzer
	Speech           speech.Synthesizer
	Log              *logger.Logger
	HTTPClient       *http.Client
	AnalyzeTimeout   time.Duration
	SpeechTimeout    time.Duration
	SpeechLimit      int
	// MaxImageBytes is the analysis upload limit; larger photos are downscaled.
	MaxImageBytes    int
	MaxDownloadBytes int
}

type Router struct {
	bot      Bot
	analyzer Analyzer
	tts      speech.Synthesizer
	log      *logger.Logger
	httpc    *http.Client
	sessions *Sessions

	analyzeTimeout time.Duration
	ttsTimeout     time.Duration
	ttsLimit       int
	maxImage       int
	maxDownload    int

	wg sync.WaitGroup
}

func NewRouter(o Options) *Router {
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if o.AnalyzeTimeout <= 0 {
		o.AnalyzeTimeout = 180 * time.Second
	}
	if o.SpeechTimeout <= 0 {
		o.SpeechTimeout = 30 * time.Second
	}
	if o.SpeechLimit <= 0 {
		o.SpeechLimit = speech.DefaultLimit
	}
	if o.MaxImageBytes <= 0 {
		o.MaxImageBytes = upload.DefaultMaxBytes
	}
	if o.MaxDownloadBytes <= 0 {
		o.MaxDownloadBytes = maxDownloadBytes
	}
	return &Router{
		bot:            o.Bot,
		analyzer:       o.Analyzer,
		tts:            o.Speech,
		log:            o.Log,
		httpc:          o.HTTPClient,
		sessions:       NewSessions(),
		analyzeTimeout: o.AnalyzeTimeout,
		ttsTimeout:     o.SpeechTimeout,
		ttsLimit:       o.SpeechLimit,
		maxImage:       o.MaxImageBytes,
		maxDownload:    o.MaxDownloadBytes,
	}
}

func (r *Router) Sessions() *Sessions { return r.sessions }

// Wait blocks until background downloads, analyses and audio jobs finish.
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) async(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	if msg.IsCommand() {
		r.handleCommand(msg.Chat.ID, msg.Command())
		return
	}
	if len(msg.Photo) > 0 {
		r.acceptPhoto(msg.Chat.ID, msg.Photo[len(msg.Photo)-1].FileID)
		return
	}
	if msg.Document != nil && isImageDocument(msg.Document) {
		r.acceptPhoto(msg.Chat.ID, msg.Document.FileID)
		return
	}
	r.send(msg.Chat.ID, "Send a photo of an X-ray, a blood test or a prescription to get a report.")
}

func (r *Router) handleCommand(chatID int64, cmd string) {
	switch cmd {
	case "start", "help":
		r.send(chatID, "Send a photo of a medical document. I will ask what it is, analyze it and explain the result in plain language.\nCommands: /reset, /health")
	case "health":
		r.send(chatID, "✅ OK")
	case "reset":
		_, _ = r.sessions.Fire(chatID, EventReset, nil)
		r.send(chatID, "Session cleared. Send a new photo whenever you are ready.")
	default:
		r.send(chatID, "Unknown command")
	}
}

// reject tells the user why an event was ignored in the current state.
func (r *Router) reject(chatID int64, err error) {
	var te *TransitionError
	if !errors.As(err, &te) {
		r.send(chatID, "Something went wrong, please try again.")
		return
	}
	switch te.From {
	case StateAnalyzing:
		r.send(chatID, "Please wait, the analysis is still running.")
	case StatePlayingAudio:
		r.send(chatID, "Please wait, the audio is being prepared.")
	case StateUploading:
		r.send(chatID, "Choose the document type first.")
	default:
		r.send(chatID, "Send a photo first.")
	}
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("telegram send failed", "chat_id", chatID, "error", err)
	}
}

// sendMarkdown falls back to plain text when Telegram rejects the markup.
func (r *Router) sendMarkdown(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = markup
	if _, err := r.bot.Send(msg); err == nil {
		return
	}
	msg.ParseMode = ""
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("telegram send failed", "chat_id", chatID, "error", err)
	}
}
