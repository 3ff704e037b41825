// Package analysis runs one upload through OCR, analysis and normalization.
package analysis

import (
	"context"
	"strings"
	"sync"
	"time"

	"medinsight/api/internal/llm"
	"medinsight/api/internal/logger"
	"medinsight/api/internal/prompt"
	"medinsight/api/internal/report"
	"medinsight/api/internal/store"
	"medinsight/api/internal/upload"
)

const (
	analysisMaxTokens = 2048
	ocrMaxTokens      = 2048
	repairMaxTokens   = 512
	persistTimeout    = 5 * time.Second
)

// Sink stores finished reports.
type Sink interface {
	Insert(ctx context.Context, r report.ClinicalReport) (store.Record, error)
}

type Request struct {
	ImageBase64 string `json:"imageBase64"`
	MIMEType    string `json:"mimeType"`
	Modality    string `json:"modality"`
}

type Options struct {
	Engine        llm.Engine
	Prompts       *prompt.Builder
	Sink          Sink
	Log           *logger.Logger
	CallTimeout   time.Duration
	MaxImageBytes int
}

type Service struct {
	engine     llm.Engine
	prompts    *prompt.Builder
	normalizer *report.Normalizer
	sink       Sink
	log        *logger.Logger
	timeout    time.Duration
	maxBytes   int

	wg sync.WaitGroup
}

func New(o Options) *Service {
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	if o.Prompts == nil {
		o.Prompts = prompt.New("")
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 60 * time.Second
	}
	s := &Service{
		engine:   o.Engine,
		prompts:  o.Prompts,
		sink:     o.Sink,
		log:      o.Log.With("component", "analysis"),
		timeout:  o.CallTimeout,
		maxBytes: o.MaxImageBytes,
	}
	s.normalizer = report.NewNormalizer(report.RepairFunc(s.repair), s.log)
	return s
}

func (s *Service) Model() string {
	if s.engine == nil {
		return ""
	}
	return s.engine.GetModel()
}

// Analyze validates the upload and returns a report. Only *InputError and
// *UpstreamError are returned; unparseable model output yields a fallback report.
func (s *Service) Analyze(ctx context.Context, req Request) (report.ClinicalReport, error) {
	if res := upload.Validate(req.ImageBase64, req.MIMEType, s.maxBytes); !res.Valid {
		return report.ClinicalReport{}, &InputError{Title: "Invalid image data", Detail: res.Message}
	}
	modality, ok := report.ParseModality(req.Modality)
	if !ok || !modality.Selectable() {
		return report.ClinicalReport{}, &InputError{Title: "Invalid modality", Detail: "Select one of: xray, blood_test, prescription"}
	}
	img := llm.Image{MIMEType: strings.TrimSpace(req.MIMEType), Base64: upload.StripDataURL(req.ImageBase64)}
	log := s.log.With("modality", modality, "model", s.Model())

	var ocr report.OCRResult
	if modality.NeedsOCR() {
		res, err := s.runOCR(ctx, img)
		if err != nil {
			log.Warn("OCR failed, continuing without it", "error", err)
		} else {
			ocr = res
			log.Info("OCR completed", "has_text", ocr.HasText())
		}
	}

	text, err := s.complete(ctx, llm.Request{
		Messages:    []llm.Message{llm.UserMessage(s.prompts.Analysis(modality, ocr.Text), img)},
		Temperature: 0,
		MaxTokens:   analysisMaxTokens,
		JSON:        true,
	})
	if err != nil {
		log.Error("analysis failed", "error", err)
		return report.ClinicalReport{}, &UpstreamError{Title: "Analysis failed", Err: err}
	}

	rep, stage := s.normalizer.NormalizeWithStage(ctx, text, modality, ocr)
	log.Info("analysis complete", "stage", stage, "severity", rep.Severity)
	s.persist(rep)
	return rep, nil
}

// Wait blocks until pending persistence writes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) runOCR(ctx context.Context, img llm.Image) (report.OCRResult, error) {
	text, err := s.complete(ctx, llm.Request{
		Messages:    []llm.Message{llm.UserMessage(s.prompts.OCR(), img)},
		Temperature: 0,
		MaxTokens:   ocrMaxTokens,
		JSON:        true,
	})
	if err != nil {
		return report.OCRResult{}, err
	}
	return parseOCR(text), nil
}

// parseOCR reads {has_text, ocr_text}; anything else is taken as raw text.
func parseOCR(text string) report.OCRResult {
	obj, ok := report.ExtractObject(text)
	if !ok {
		return report.OCRResult{Ran: true, Text: strings.TrimSpace(text)}
	}
	out := report.OCRResult{Ran: true}
	if s, ok := obj["ocr_text"].(string); ok {
		out.Text = strings.TrimSpace(s)
	}
	if has, ok := obj["has_text"].(bool); ok && !has {
		out.Text = ""
	}
	return out
}

func (s *Service) repair(ctx context.Context, raw string) (string, error) {
	return s.complete(ctx, llm.Request{
		Messages:    []llm.Message{llm.UserMessage(s.prompts.Repair(raw))},
		Temperature: 0,
		MaxTokens:   repairMaxTokens,
		JSON:        true,
	})
}

func (s *Service) complete(ctx context.Context, req llm.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.engine.Complete(ctx, req)
}

// persist writes rep in the background; failures are only logged.
func (s *Service) persist(rep report.ClinicalReport) {
	if s.sink == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		rec, err := s.sink.Insert(ctx, rep)
		if err != nil {
			s.log.Error("failed to save analysis", "error", err)
			return
		}
		s.log.Debug("analysis saved", "id", rec.ID)
	}()
}
