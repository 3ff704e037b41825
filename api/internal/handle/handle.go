package handle

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"medinsight/api/internal/analysis"
	"medinsight/api/internal/logger"
	"medinsight/api/internal/report"
	"medinsight/api/internal/speech"
	"medinsight/api/internal/store"
)

const AppVersion = "medinsight-ocr-v2"

type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (report.ClinicalReport, error)
}

// History reads persisted reports.
type History interface {
	Recent(ctx context.Context, limit int) ([]store.Record, error)
	Stats(ctx context.Context) (store.Stats, error)
}

type Info struct {
	Version  string
	Provider string
	Model    string
	Port     string
}

type Options struct {
	Analyzer        Analyzer
	Speech          speech.Synthesizer
	History         History
	Log             *logger.Logger
	Info            Info
	AnalyzeTimeout  time.Duration
	SpeechTimeout   time.Duration
	SpeechMaxChars  int
	DatabaseTimeout time.Duration
}

type Handle struct {
	analyzer Analyzer
	tts      speech.Synthesizer
	history  History
	log      *logger.Logger
	info     Info

	analyzeTimeout time.Duration
	ttsTimeout     time.Duration
	ttsLimit       int
	dbTimeout      time.Duration
}

func New(o Options) *Handle {
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	if o.Info.Version == "" {
		o.Info.Version = AppVersion
	}
	if o.AnalyzeTimeout <= 0 {
		o.AnalyzeTimeout = 180 * time.Second
	}
	if o.SpeechTimeout <= 0 {
		o.SpeechTimeout = 30 * time.Second
	}
	if o.SpeechMaxChars <= 0 {
		o.SpeechMaxChars = speech.DefaultLimit
	}
	if o.DatabaseTimeout <= 0 {
		o.DatabaseTimeout = 5 * time.Second
	}
	return &Handle{
		analyzer:       o.Analyzer,
		tts:            o.Speech,
		history:        o.History,
		log:            o.Log,
		info:           o.Info,
		analyzeTimeout: o.AnalyzeTimeout,
		ttsTimeout:     o.SpeechTimeout,
		ttsLimit:       o.SpeechMaxChars,
		dbTimeout:      o.DatabaseTimeout,
	}
}

func writeJSON(c *gin.Context, code int, v any) {
	c.JSON(code, v)
}

func writeError(c *gin.Context, code int, title, detail string) {
	body := gin.H{"error": title}
	if detail != "" {
		body["detail"] = detail
	}
	c.JSON(code, body)
}
