// Package render exports archived analyses as Markdown documents.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/agenthands/medscan/internal/core/model"
	"github.com/nao1215/markdown"
)

const disclaimer = "Automated analysis. Review the results with a qualified healthcare professional."

// Markdown writes a single archived analysis.
func Markdown(w io.Writer, a *model.ArchivedAnalysis) error {
	md := markdown.NewMarkdown(w)

	md.H1(a.Title)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Analysis", "`" + a.UUID + "`"},
			{"Patient", "`" + a.PatientID + "`"},
			{"Kind", string(a.Kind)},
			{"Status", statusText(a.Status)},
			{"Created", a.CreatedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")

	if isAlarming(a) {
		md.Warningf("Status **%s** needs follow-up.", a.Status)
		md.PlainText("")
	}

	md.H2("Findings")
	md.PlainText("")
	if len(a.Findings) == 0 {
		md.PlainText("No findings recorded.")
	} else {
		items := make([]string, len(a.Findings))
		for i, f := range a.Findings {
			items[i] = findingText(f)
		}
		md.BulletList(items...)
	}
	md.PlainText("")

	if len(a.Recommendations) > 0 {
		md.H2("Recommendations")
		md.PlainText("")
		md.BulletList(a.Recommendations...)
		md.PlainText("")
	}

	if a.Payload != "" {
		md.Details("Raw response", "\n```json\n"+indent(a.Payload)+"\n```\n")
		md.PlainText("")
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*%s*", disclaimer)

	return md.Build()
}

func findingText(f model.ArchivedFinding) string {
	if f.Confidence <= 0 {
		return f.Condition
	}
	return fmt.Sprintf("%s (%.0f%%)", f.Condition, f.Confidence*100)
}

func statusText(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var alarming = map[string]bool{
	string(model.StatusAbnormal): true,
	string(model.RiskHigh):       true,
	"Suicidal":                   true,
	"Depressed":                  true,
}

func isAlarming(a *model.ArchivedAnalysis) bool {
	return alarming[a.Status]
}

func indent(payload string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(payload), "", "  "); err != nil {
		return payload
	}
	return buf.String()
}
