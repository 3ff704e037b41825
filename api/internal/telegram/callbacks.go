package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medinsight/api/internal/analysis"
	"medinsight/api/internal/report"
	"medinsight/api/internal/speech"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.bot.Request(tgbotapi.NewCallback(cb.ID, ""))

	switch {
	case strings.HasPrefix(cb.Data, cbModalityPrefix):
		r.onModality(cid, cb.Message.MessageID, strings.TrimPrefix(cb.Data, cbModalityPrefix))
	case cb.Data == cbListen:
		r.onListen(cid)
	}
}

func (r *Router) onModality(chatID int64, msgID int, raw string) {
	m, ok := report.ParseModality(raw)
	if !ok || !m.Selectable() {
		r.send(chatID, "Unknown document type.")
		return
	}
	sess, err := r.sessions.Fire(chatID, EventModalityChosen, func(s *Session) { s.Modality = m })
	if err != nil {
		r.reject(chatID, err)
		return
	}
	r.clearKeyboard(chatID, msgID)
	r.send(chatID, "Analyzing your "+m.Title()+"…")

	r.async(func() { r.runAnalysis(chatID, sess) })
}

func (r *Router) runAnalysis(chatID int64, sess Session) {
	ctx, cancel := context.WithTimeout(context.Background(), r.analyzeTimeout)
	defer cancel()

	rep, err := r.analyzer.Analyze(ctx, analysis.Request{
		ImageBase64: sess.Image,
		MIMEType:    sess.MIMEType,
		Modality:    string(sess.Modality),
	})
	if err != nil {
		if _, ferr := r.sessions.FireIf(chatID, sess.Gen, EventAnalysisFailed, func(s *Session) { s.Image = "" }); ferr != nil {
			r.log.Debug("dropping stale analysis failure", "chat_id", chatID, "error", err)
			return
		}
		r.log.Warn("telegram analysis failed", "chat_id", chatID, "error", err)
		var in *analysis.InputError
		if errors.As(err, &in) {
			r.send(chatID, in.Title+": "+in.Detail)
			return
		}
		r.send(chatID, "The analysis failed. Please try again with a new photo.")
		return
	}

	if _, err := r.sessions.FireIf(chatID, sess.Gen, EventAnalysisDone, func(s *Session) {
		s.Image = ""
		s.Report = &rep
	}); err != nil {
		r.log.Debug("dropping stale analysis result", "chat_id", chatID, "error", err)
		return
	}
	var markup any
	if r.tts != nil {
		markup = listenKeyboard()
	}
	r.sendMarkdown(chatID, renderReport(rep), markup)
}

func (r *Router) onListen(chatID int64) {
	if r.tts == nil {
		r.send(chatID, "Audio is not available.")
		return
	}
	sess, err := r.sessions.Fire(chatID, EventListen, nil)
	if err != nil {
		r.reject(chatID, err)
		return
	}
	if sess.Report == nil {
		_, _ = r.sessions.Fire(chatID, EventAudioDone, nil)
		r.send(chatID, "No report to read out.")
		return
	}
	rep := *sess.Report
	r.async(func() { r.runSpeech(chatID, sess.Gen, rep) })
}

func (r *Router) runSpeech(chatID int64, gen uint64, rep report.ClinicalReport) {
	defer func() { _, _ = r.sessions.FireIf(chatID, gen, EventAudioDone, nil) }()

	ctx, cancel := context.WithTimeout(context.Background(), r.ttsTimeout)
	defer cancel()

	audio, err := r.tts.Synthesize(ctx, speech.Prepare(speech.Script(rep), r.ttsLimit))
	if err != nil {
		r.log.Warn("telegram speech failed", "chat_id", chatID, "provider", r.tts.Name(), "error", err)
		if speech.IsQuotaExceeded(err) {
			r.send(chatID, "Text-to-speech quota exceeded. Please try again later.")
			return
		}
		r.send(chatID, "Could not generate audio right now.")
		return
	}
	if r.sessions.Get(chatID).Gen != gen {
		return
	}
	a := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{Name: "report.mp3", Bytes: audio.Data})
	a.Title = rep.Modality.Title() + " report"
	if _, err := r.bot.Send(a); err != nil {
		r.log.Warn("telegram audio send failed", "chat_id", chatID, "error", err)
		r.send(chatID, "Could not send the audio.")
	}
}

func (r *Router) clearKeyboard(chatID int64, msgID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	_, _ = r.bot.Request(edit)
}
