package formatter

import (
	"fmt"
	"io"

	"github.com/tordrt/schematighten/internal/policy"
)

// TextFormatter renders a decision report as compact text.
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the report in compact text format.
func (f *TextFormatter) Format(rep *policy.Report) error {
	summary := rep.Summarize()
	_, _ = fmt.Fprintf(f.writer, "TIGHTENING REPORT mode=%s epsilon=%g\n", rep.Config.Mode, rep.Config.NullBudgetEpsilon)
	_, _ = fmt.Fprintf(f.writer, "tighten=%d skip=%d remediation=%d warnings=%d\n",
		summary.Tighten, summary.Skip, summary.Remediation, summary.Warnings)

	for _, group := range GroupByEntity(rep) {
		_, _ = fmt.Fprintf(f.writer, "\nENTITY %s\n", group.Entity)
		for _, d := range group.Decisions {
			_, _ = fmt.Fprintf(f.writer, "  [%s] %s\n", d.Action, SubjectLabel(d.Subject))
			for _, e := range d.Trail {
				_, _ = fmt.Fprintf(f.writer, "    %s\n", traceLine(e))
			}
		}
	}
	return nil
}

func traceLine(e policy.TraceEntry) string {
	line := fmt.Sprintf("%s: %s", e.Rule, e.Outcome)
	if e.Evidence != "" {
		line += " [" + e.Evidence + "]"
	}
	if e.Note != "" {
		line += " " + e.Note
	}
	return line
}
