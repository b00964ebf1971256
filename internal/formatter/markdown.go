package formatter

import (
	"fmt"
	"io"

	"github.com/tordrt/schematighten/internal/policy"
)

// MarkdownFormatter renders a decision report as markdown with one section
// per entity and the full rationale trail under each decision.
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter.
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the report as markdown.
func (f *MarkdownFormatter) Format(rep *policy.Report) error {
	f.writeHeader(f.writer, rep)
	for _, group := range GroupByEntity(rep) {
		_, _ = fmt.Fprintf(f.writer, "## %s\n\n", group.Entity)
		f.writeDecisions(f.writer, group.Decisions)
	}
	return nil
}

func (f *MarkdownFormatter) writeHeader(w io.Writer, rep *policy.Report) {
	summary := rep.Summarize()
	_, _ = fmt.Fprintf(w, "# Tightening Report\n\n")
	_, _ = fmt.Fprintf(w, "Mode: `%s`, epsilon: `%g`, foreign keys: `%t`, platform indexes: `%t`\n\n",
		rep.Config.Mode, rep.Config.NullBudgetEpsilon, rep.Config.EnableForeignKeys, rep.Config.IncludePlatformIndexes)
	_, _ = fmt.Fprintf(w, "| Tighten | Skip | Remediation | Warnings |\n")
	_, _ = fmt.Fprintf(w, "|---|---|---|---|\n")
	_, _ = fmt.Fprintf(w, "| %d | %d | %d | %d |\n\n",
		summary.Tighten, summary.Skip, summary.Remediation, summary.Warnings)
}

func (f *MarkdownFormatter) writeDecisions(w io.Writer, decisions []policy.Decision) {
	for _, d := range decisions {
		_, _ = fmt.Fprintf(w, "### %s — `%s`\n\n", SubjectLabel(d.Subject), d.Action)
		for _, e := range d.Trail {
			_, _ = fmt.Fprintf(w, "- %s\n", traceLine(e))
		}
		_, _ = fmt.Fprintln(w)
	}
}
