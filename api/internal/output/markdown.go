package output

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"medinsight/api/internal/report"
	"medinsight/api/internal/store"
)

var severityLabel = map[report.Severity]string{
	report.Green:  "🟢 Green",
	report.Yellow: "🟡 Yellow",
	report.Red:    "🔴 Red",
}

// WriteReport writes rep in f.
func WriteReport(w io.Writer, f Format, rep report.ClinicalReport) error {
	if f != Markdown {
		return Encode(w, f, rep)
	}
	md := markdown.NewMarkdown(w)
	writeReport(md, rep)
	return md.Build()
}

func writeReport(md *markdown.Markdown, rep report.ClinicalReport) {
	md.H1(rep.Modality.Title() + " report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Modality", rep.Modality.Title()},
			{"Severity", severityLabel[rep.Severity]},
			{"Text found", strconv.FormatBool(rep.OCRHasText)},
		},
	})
	md.PlainText("")

	switch rep.Severity {
	case report.Red:
		md.Cautionf("Findings that need prompt medical attention.")
	case report.Yellow:
		md.Warningf("Findings worth discussing with a doctor.")
	default:
		md.Tip("No significant concerns found.")
	}
	md.PlainText("")

	md.H2("Summary")
	md.PlainText(rep.Summary)
	md.PlainText("")

	if len(rep.Details) > 0 {
		md.H2("Details")
		md.BulletList(rep.Details...)
		md.PlainText("")
	}
	if len(rep.RecommendedActions) > 0 {
		md.H2("Recommended actions")
		for i, a := range rep.RecommendedActions {
			md.PlainText(strconv.Itoa(i+1) + ". " + a)
		}
		md.PlainText("")
	}
	if rep.OCRExcerpt != "" {
		md.H2("Extracted text")
		md.CodeBlocks(markdown.SyntaxHighlightText, rep.OCRExcerpt)
		md.PlainText("")
	}
	md.HorizontalRule()
	md.PlainTextf("*%s*", rep.Disclaimer)
}

// WriteHistory writes stored records in f; markdown gets one table row per record.
func WriteHistory(w io.Writer, f Format, recs []store.Record) error {
	if f != Markdown {
		return Encode(w, f, recs)
	}
	md := markdown.NewMarkdown(w)
	md.H1("Recent analyses")
	md.PlainText("")
	if len(recs) == 0 {
		md.PlainText("No analyses stored yet.")
		return md.Build()
	}
	rows := make([][]string, len(recs))
	for i, r := range recs {
		rows[i] = []string{
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Modality.Title(),
			severityLabel[r.Severity],
			r.Summary,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"When", "Modality", "Severity", "Summary"},
		Rows:   rows,
	})
	return md.Build()
}
