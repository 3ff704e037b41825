package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medinsight/api/internal/report"
)

const (
	cbModalityPrefix = "mod:"
	cbListen         = "listen"
	maxMessageLen    = 3900
)

func modalityKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 3)
	for _, m := range report.Modalities {
		if !m.Selectable() {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(m.Title(), cbModalityPrefix+string(m)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func listenKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("🔊 Listen", cbListen)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

func severityEmoji(s report.Severity) string {
	switch s {
	case report.Red:
		return "🔴"
	case report.Yellow:
		return "🟡"
	default:
		return "🟢"
	}
}

// esc keeps legacy Markdown from breaking on user-visible text.
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}

func renderReport(r report.ClinicalReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* (%s)\n\n", severityEmoji(r.Severity), esc(r.Modality.Title()), strings.ToUpper(string(r.Severity)))
	b.WriteString("*Summary*\n")
	b.WriteString(esc(r.Summary))
	b.WriteString("\n")
	if len(r.Details) > 0 {
		b.WriteString("\n*Details*\n")
		for _, d := range r.Details {
			b.WriteString("• ")
			b.WriteString(esc(d))
			b.WriteString("\n")
		}
	}
	if len(r.RecommendedActions) > 0 {
		b.WriteString("\n*Recommended actions*\n")
		for i, a := range r.RecommendedActions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, esc(a))
		}
	}
	if r.OCRHasText && r.OCRExcerpt != "" {
		b.WriteString("\n*Extracted text*\n")
		b.WriteString(esc(r.OCRExcerpt))
		b.WriteString("\n")
	}
	b.WriteString("\n_")
	b.WriteString(esc(r.Disclaimer))
	b.WriteString("_")

	out := b.String()
	if runes := []rune(out); len(runes) > maxMessageLen {
		out = string(runes[:maxMessageLen]) + "…"
	}
	return out
}
