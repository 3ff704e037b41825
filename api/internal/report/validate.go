package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Validate coerces a parsed model object into a ClinicalReport. It never
// trusts the object's shape: enums are clamped, lists are coerced and
// defaults fill anything missing. OCR fields always come from ocr.
func Validate(obj map[string]any, declared Modality, ocr OCRResult) ClinicalReport {
	r := ClinicalReport{
		Modality:   pickModality(declared),
		Severity:   Yellow,
		Summary:    stringOr(obj["summary"], DefaultSummary),
		Disclaimer: stringOr(obj["disclaimer"], DefaultDisclaimer),
		OCRExcerpt: ocrExcerpt(ocr),
		OCRHasText: ocr.HasText(),
	}
	if s, ok := obj["modality"].(string); ok {
		if m, ok := ParseModality(s); ok {
			r.Modality = m
		}
	}
	if s, ok := obj["severity"].(string); ok {
		if v, ok := ParseSeverity(s); ok {
			r.Severity = v
		}
	}

	r.Details = toStringList(obj["details"])
	actions, ok := obj["recommended_actions"]
	if !ok {
		actions = obj["recommendedActions"]
	}
	r.RecommendedActions = toStringList(actions)
	return r
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return def
}

// toStringList wraps truthy scalars into a single-element list and drops
// blanks. false and 0 give an empty list.
func toStringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case bool:
		if t {
			out = append(out, "true")
		}
	case float64:
		if t != 0 {
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		}
	case []any:
		for _, item := range t {
			if s, ok := stringify(item); ok {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range t {
			if s, ok := stringify(item); ok {
				out = append(out, s)
			}
		}
	default:
		if s, ok := stringify(v); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringify(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	case json.Number:
		s = t.String()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		s = string(b)
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
