// Package prompt builds the instructions sent to the model.
package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"medinsight/api/internal/report"
	"medinsight/api/internal/util"
)

const (
	MaxOCRChars    = 12000
	MaxRepairChars = 12000
)

// Builder renders prompts. When Dir is set, <Dir>/<name>.txt replaces the
// built-in header of the matching prompt.
type Builder struct {
	Dir string

	mu    sync.RWMutex
	cache map[string]string // set once Watch runs
}

func New(dir string) *Builder {
	return &Builder{Dir: dir}
}

// Analysis is the instruction for the main analysis call.
func (b *Builder) Analysis(modality report.Modality, ocrText string) string {
	var sb strings.Builder
	sb.WriteString(b.load("analysis", analysisHeader))
	sb.WriteString("\n\nANALYSIS GUIDELINES:\n\n")
	sb.WriteString(guidelines(modality))
	sb.WriteString("\n\n")
	sb.WriteString(severityGuide)
	sb.WriteString("\n\n")
	sb.WriteString(outputFormat)
	sb.WriteString("\n\n")
	sb.WriteString(closing)

	if t := strings.TrimSpace(ocrText); t != "" {
		sb.WriteString("\n\nOCR extracted text (may include lab values and notes):\n")
		sb.WriteString(util.TruncateRunes(t, MaxOCRChars))
	}
	if modality != "" {
		sb.WriteString("\n\nUser-stated modality hint: ")
		sb.WriteString(string(modality))
	}
	return sb.String()
}

// OCR is the instruction for the text extraction call.
func (b *Builder) OCR() string {
	return b.load("ocr", ocrInstruction)
}

// Repair asks the model to convert raw output into strict report JSON.
func (b *Builder) Repair(raw string) string {
	var sb strings.Builder
	sb.WriteString(b.load("repair", repairHeader))
	sb.WriteString("\nSchema:\n")
	sb.WriteString(report.SchemaHint)
	sb.WriteString("\n\nAssistant output:\n")
	sb.WriteString(util.TruncateRunes(raw, MaxRepairChars))
	return sb.String()
}

func (b *Builder) load(name, def string) string {
	if b == nil || b.Dir == "" {
		return def
	}
	b.mu.RLock()
	cache := b.cache
	s, ok := cache[name]
	b.mu.RUnlock()
	if cache == nil {
		s, ok = b.readOverride(name)
	}
	if !ok {
		return def
	}
	return s
}

func (b *Builder) readOverride(name string) (string, bool) {
	raw, err := os.ReadFile(filepath.Join(b.Dir, name+".txt"))
	if err != nil {
		return "", false
	}
	s := strings.TrimSpace(string(raw))
	return s, s != ""
}

func guidelines(m report.Modality) string {
	switch m {
	case report.Xray:
		return xrayGuide
	case report.BloodTest:
		return bloodGuide
	case report.Prescription:
		return prescriptionGuide
	}
	return xrayGuide + "\n\n" + bloodGuide + "\n\n" + prescriptionGuide
}
