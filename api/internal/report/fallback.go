package report

import "medinsight/api/internal/util"

const fallbackSummary = "Preliminary analysis could not be fully structured. Please review the details and consider re-uploading a clearer image."

var (
	fallbackDetails = []string{
		"The AI returned an unstructured response. This fallback summary is provided to avoid blocking you.",
		"If this is a blood report or prescription, ensure text is readable and well lit.",
	}
	fallbackActions = []string{
		"Re-upload a clearer image (PNG/JPG, avoid heavy compression).",
		"Verify you selected the correct type (X-ray, Blood Test, or Prescription).",
		"Consult a qualified healthcare professional for medical advice.",
	}
)

// Fallback is the conservative report returned when nothing could be parsed.
func Fallback(declared Modality, ocr OCRResult) ClinicalReport {
	return ClinicalReport{
		Modality:           pickModality(declared),
		Severity:           Yellow,
		Summary:            fallbackSummary,
		Details:            append([]string(nil), fallbackDetails...),
		RecommendedActions: append([]string(nil), fallbackActions...),
		Disclaimer:         DefaultDisclaimer,
		OCRExcerpt:         ocrExcerpt(ocr),
		OCRHasText:         ocr.HasText(),
	}
}

func pickModality(declared Modality) Modality {
	if declared.Valid() {
		return declared
	}
	return Other
}

func ocrExcerpt(ocr OCRResult) string {
	if !ocr.Ran {
		return ""
	}
	return util.TruncateRunes(ocr.Text, MaxOCRExcerpt)
}
