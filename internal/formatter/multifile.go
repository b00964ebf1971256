package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tordrt/schematighten/internal/policy"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
)

// MultiFileFormatter writes a decision report to multiple files in a
// directory: an _overview file plus one file per entity.
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter.
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes the report to multiple files.
func (f *MultiFileFormatter) Format(rep *policy.Report) error {
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	groups := GroupByEntity(rep)

	if err := f.writeOverview(rep, groups); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, group := range groups {
		if err := f.writeEntityFile(group); err != nil {
			return fmt.Errorf("failed to write entity file for %s: %w", group.Entity, err)
		}
	}

	return nil
}

// writeOverview writes the overview file with per-entity decision tallies.
func (f *MultiFileFormatter) writeOverview(rep *policy.Report, groups []EntityGroup) error {
	ext := f.getFileExtension()
	filename := filepath.Join(f.OutputDir, "_overview"+ext)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	// Sort entities alphabetically for the overview listing
	sorted := make([]EntityGroup, len(groups))
	copy(sorted, groups)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Entity < sorted[j].Entity
	})

	summary := rep.Summarize()
	if f.OutputFormat == formatMarkdown {
		_, _ = fmt.Fprintf(file, "# Tightening Report Overview\n\n")
		_, _ = fmt.Fprintf(file, "Mode `%s`, epsilon `%g`. Each entity has a corresponding file: `<entity>%s`\n\n",
			rep.Config.Mode, rep.Config.NullBudgetEpsilon, ext)
		_, _ = fmt.Fprintf(file, "Totals: %d tighten, %d skip, %d remediation, %d warnings.\n\n",
			summary.Tighten, summary.Skip, summary.Remediation, summary.Warnings)
		_, _ = fmt.Fprintf(file, "## Entities\n\n")
		for _, g := range sorted {
			_, _ = fmt.Fprintf(file, "- **%s** (%s)\n", g.Entity, g.tally())
		}
		return nil
	}

	_, _ = fmt.Fprintf(file, "TIGHTENING REPORT OVERVIEW mode=%s epsilon=%g\n", rep.Config.Mode, rep.Config.NullBudgetEpsilon)
	_, _ = fmt.Fprintf(file, "Each entity has a file: <entity>%s\n\n", ext)
	for _, g := range sorted {
		_, _ = fmt.Fprintf(file, "%s (%s)\n", g.Entity, g.tally())
	}
	return nil
}

// writeEntityFile writes a single entity's decisions to its own file.
func (f *MultiFileFormatter) writeEntityFile(group EntityGroup) error {
	ext := f.getFileExtension()
	filename := filepath.Join(f.OutputDir, group.Entity+ext)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if f.OutputFormat == formatMarkdown {
		md := NewMarkdownFormatter(file)
		_, _ = fmt.Fprintf(file, "## %s\n\n", group.Entity)
		md.writeDecisions(file, group.Decisions)
		return nil
	}

	_, _ = fmt.Fprintf(file, "ENTITY %s\n", group.Entity)
	for _, d := range group.Decisions {
		_, _ = fmt.Fprintf(file, "  [%s] %s\n", d.Action, SubjectLabel(d.Subject))
		for _, e := range d.Trail {
			_, _ = fmt.Fprintf(file, "    %s\n", traceLine(e))
		}
	}
	return nil
}

func (g EntityGroup) tally() string {
	var tighten, skip, remediate int
	for _, d := range g.Decisions {
		switch d.Action {
		case policy.ActionTighten:
			tighten++
		case policy.ActionSkip:
			skip++
		case policy.ActionTightenWithRemediation:
			remediate++
		}
	}
	return fmt.Sprintf("%d tighten, %d skip, %d remediation", tighten, skip, remediate)
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}
