package speech

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"medinsight/api/internal/report"
	"medinsight/api/internal/util"
)

var (
	summaryRe   = regexp.MustCompile(`(?i)(?:Executive Summary|Summary)[:\s]*([^.]+\.)`)
	actionsRe   = regexp.MustCompile(`(?i)Recommended Actions[:\s]*([^.]+(?:\.[^.]*)*\.)`)
	sentenceEnd = regexp.MustCompile(`[.!?]+`)
)

// Summarize reduces text to a spoken summary of at most limit characters.
// Labeled Summary and Recommended Actions sections win over the first sentence.
func Summarize(text string, limit int) string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	text = strings.ReplaceAll(text, "**", "")
	var sb strings.Builder
	if m := summaryRe.FindStringSubmatch(text); m != nil {
		sb.WriteString("Summary: ")
		sb.WriteString(strings.TrimSuffix(strings.TrimSpace(m[1]), "."))
		sb.WriteString(". ")
	}
	if m := actionsRe.FindStringSubmatch(text); m != nil {
		sb.WriteString("Recommended Actions: ")
		sb.WriteString(strings.TrimSpace(m[1]))
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		out = firstSentence(text)
	}
	return util.Ellipsize(out, limit)
}

// Prepare returns text unchanged when it fits the limit, otherwise its summary.
func Prepare(text string, limit int) string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return Summarize(text, limit)
}

func firstSentence(text string) string {
	for _, s := range sentenceEnd.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			return s + "."
		}
	}
	return "Analysis complete."
}

// Script renders a report as the narration read to the user.
func Script(r report.ClinicalReport) string {
	var sb strings.Builder
	sb.WriteString("Executive Summary: ")
	sb.WriteString(strings.TrimSuffix(strings.TrimSpace(r.Summary), "."))
	sb.WriteString(". ")
	if len(r.RecommendedActions) == 0 {
		sb.WriteString("Recommended Actions: Consult your healthcare provider for personalized next steps.")
	} else {
		sb.WriteString("Recommended Actions: ")
		for i, a := range r.RecommendedActions {
			fmt.Fprintf(&sb, "%d. %s. ", i+1, strings.TrimSuffix(strings.TrimSpace(a), "."))
		}
	}
	return util.Ellipsize(strings.TrimSpace(sb.String()), MaxScriptLen)
}
