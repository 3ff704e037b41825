package speech

import (
	"strings"
	"testing"
	"unicode/utf8"

	"medinsight/api/internal/report"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{
			name:  "labeled sections",
			text:  "**Executive Summary:** Mild anemia. **Recommended Actions:** Repeat CBC in 4 weeks.",
			limit: 200,
			want:  "Summary: Mild anemia. Recommended Actions: Repeat CBC in 4 weeks.",
		},
		{
			name:  "first sentence",
			text:  "**Hemoglobin** is slightly low! Other values are normal.",
			limit: 150,
			want:  "Hemoglobin is slightly low.",
		},
		{
			name:  "nothing usable",
			text:  " ...!!! ",
			limit: 150,
			want:  "Analysis complete.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.text, tt.limit); got != tt.want {
				t.Errorf("Summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarizeTruncatesFirstSentence(t *testing.T) {
	long := strings.Repeat("word ", 80) + "end. Second sentence."
	got := Summarize(long, 150)
	if n := utf8.RuneCountInString(got); n > 150 {
		t.Fatalf("len = %d, want <= 150", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Summarize() = %q, want ellipsis", got)
	}
	if strings.Contains(got, "Second") {
		t.Errorf("Summarize() = %q, want only the first sentence", got)
	}
}

func TestPrepare(t *testing.T) {
	if got := Prepare("  Short text  ", 150); got != "Short text" {
		t.Errorf("Prepare(short) = %q", got)
	}
	long := "The scan shows no fracture. " + strings.Repeat("More detail here. ", 20)
	if got := Prepare(long, 150); got != "The scan shows no fracture." {
		t.Errorf("Prepare(long) = %q", got)
	}
}

func TestScript(t *testing.T) {
	r := report.ClinicalReport{
		Summary:            "Cholesterol is elevated.",
		RecommendedActions: []string{"Reduce saturated fat.", "Recheck lipids in 3 months"},
	}
	want := "Executive Summary: Cholesterol is elevated. Recommended Actions: 1. Reduce saturated fat. 2. Recheck lipids in 3 months."
	if got := Script(r); got != want {
		t.Errorf("Script() = %q, want %q", got, want)
	}

	got := Script(report.ClinicalReport{Summary: "Fine"})
	if !strings.HasSuffix(got, "Consult your healthcare provider for personalized next steps.") {
		t.Errorf("Script(no actions) = %q", got)
	}

	big := report.ClinicalReport{Summary: "x", RecommendedActions: []string{strings.Repeat("a", 3000)}}
	if n := utf8.RuneCountInString(Script(big)); n > MaxScriptLen {
		t.Errorf("Script() len = %d, want <= %d", n, MaxScriptLen)
	}
}

func TestScriptThenPrepare(t *testing.T) {
	r := report.ClinicalReport{
		Summary:            "Two medications with no major interactions.",
		RecommendedActions: []string{"Take amoxicillin with food", "Finish the full course", "Avoid alcohol while on metronidazole"},
	}
	got := Prepare(Script(r), 150)
	if !strings.HasPrefix(got, "Summary: Two medications with no major interactions. Recommended Actions:") {
		t.Errorf("Prepare(Script()) = %q", got)
	}
	if n := utf8.RuneCountInString(got); n > 150 {
		t.Errorf("len = %d, want <= 150", n)
	}
}
