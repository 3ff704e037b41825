package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"medinsight/api/internal/report"
	"medinsight/api/internal/store"
)

var sample = report.ClinicalReport{
	Modality:           report.BloodTest,
	Severity:           report.Yellow,
	Summary:            "Iron is slightly low.",
	Details:            []string{"Ferritin 12 ng/mL"},
	RecommendedActions: []string{"Repeat in 4 weeks", "Eat iron rich food"},
	Disclaimer:         report.DefaultDisclaimer,
	OCRExcerpt:         "Ferritin 12",
	OCRHasText:         true,
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": JSON, "JSON": JSON, "yml": YAML, "yaml": YAML, "md": Markdown, "markdown": Markdown}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestWriteReportJSONUsesWireNames(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, JSON, sample); err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if m["recommended_actions"] == nil || m["ocr_has_text"] != true {
		t.Errorf("json = %s", buf.String())
	}
}

func TestWriteReportYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, YAML, sample); err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if m["severity"] != "yellow" || m["modality"] != "blood_test" {
		t.Errorf("yaml = %s", buf.String())
	}
}

func TestWriteReportMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, Markdown, sample); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"# Blood Test report", "🟡 Yellow", "## Summary", "Iron is slightly low.", "1. Repeat in 4 weeks", "2. Eat iron rich food", "Ferritin 12 ng/mL"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestWriteHistory(t *testing.T) {
	recs := []store.Record{{ID: "1", CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), ClinicalReport: sample}}

	var buf bytes.Buffer
	if err := WriteHistory(&buf, Markdown, recs); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "2025-03-01 10:00") || !strings.Contains(buf.String(), "Iron is slightly low.") {
		t.Errorf("markdown = %s", buf.String())
	}

	buf.Reset()
	if err := WriteHistory(&buf, YAML, recs); err != nil {
		t.Fatal(err)
	}
	var out []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0]["id"] != "1" || out[0]["summary"] != "Iron is slightly low." {
		t.Errorf("yaml = %s", buf.String())
	}
}
