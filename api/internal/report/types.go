// Package report holds the clinical report model and the pipeline that turns
// raw model output into a report.
package report

import "strings"

type Modality string

const (
	Xray         Modality = "xray"
	BloodTest    Modality = "blood_test"
	Prescription Modality = "prescription"
	Other        Modality = "other"
)

// Modalities lists every valid modality, Other last.
var Modalities = []Modality{Xray, BloodTest, Prescription, Other}

func (m Modality) Valid() bool {
	switch m {
	case Xray, BloodTest, Prescription, Other:
		return true
	}
	return false
}

// Selectable reports whether a user may pick m for an upload.
func (m Modality) Selectable() bool {
	return m == Xray || m == BloodTest || m == Prescription
}

// NeedsOCR reports whether text extraction runs before analysis.
func (m Modality) NeedsOCR() bool {
	return m == BloodTest || m == Prescription
}

func (m Modality) Title() string {
	switch m {
	case Xray:
		return "X-ray"
	case BloodTest:
		return "Blood Test"
	case Prescription:
		return "Prescription"
	}
	return "Other"
}

// ParseModality trims and case-folds s.
func ParseModality(s string) (Modality, bool) {
	m := Modality(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

type Severity string

const (
	Green  Severity = "green"
	Yellow Severity = "yellow"
	Red    Severity = "red"
)

var Severities = []Severity{Green, Yellow, Red}

func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// Rank orders severities by urgency; -1 for unknown values.
func (s Severity) Rank() int {
	switch s {
	case Green:
		return 0
	case Yellow:
		return 1
	case Red:
		return 2
	}
	return -1
}

func ParseSeverity(s string) (Severity, bool) {
	v := Severity(strings.ToLower(strings.TrimSpace(s)))
	return v, v.Valid()
}

// ClinicalReport is what every analysis returns to the client.
type ClinicalReport struct {
	Modality           Modality `json:"modality" yaml:"modality"`
	Severity           Severity `json:"severity" yaml:"severity"`
	Summary            string   `json:"summary" yaml:"summary"`
	Details            []string `json:"details" yaml:"details"`
	RecommendedActions []string `json:"recommended_actions" yaml:"recommended_actions"`
	Disclaimer         string   `json:"disclaimer" yaml:"disclaimer"`
	OCRExcerpt         string   `json:"ocr_excerpt" yaml:"ocr_excerpt"`
	OCRHasText         bool     `json:"ocr_has_text" yaml:"ocr_has_text"`
}

// OCRResult is the outcome of the optional text extraction call.
type OCRResult struct {
	Ran  bool
	Text string
}

// HasText is true only if OCR ran and produced non-blank text.
func (o OCRResult) HasText() bool {
	return o.Ran && strings.TrimSpace(o.Text) != ""
}

const (
	MaxOCRExcerpt = 500

	DefaultSummary    = "No summary available."
	DefaultDisclaimer = "This is an AI-generated analysis and not a medical diagnosis. Please consult a qualified healthcare professional."
)
