package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tordrt/schematighten"
	"github.com/tordrt/schematighten/internal/formatter"
	"github.com/tordrt/schematighten/internal/policy"
)

var (
	modelPath       string
	dbURL           string
	mysqlURL        string
	sqlitePath      string
	mode            string
	epsilon         float64
	enableFKs       bool
	includePlatform bool
	allowCrossSch   bool
	allowCrossCat   bool
	entities        string
	excludeEntities string
	outputFile      string
	outputDir       string
	format          string
	ddlOut          string
	drift           bool
	concurrency     int
)

var rootCmd = &cobra.Command{
	Use:   "schematighten",
	Short: "Decide and script schema tightenings from model and evidence",
	Long: `SchemaTighten profiles a live database against a declarative logical model,
decides column by column whether constraints should be tightened (NOT NULL,
foreign keys, unique indexes), and emits an auditable decision report plus
the DDL to apply it. Every decision carries a rationale trail.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&modelPath, "model", "m", "", "Logical model YAML file (required)")
	rootCmd.Flags().StringVar(&dbURL, "db-url", "", "PostgreSQL connection string")
	rootCmd.Flags().StringVar(&mysqlURL, "mysql-url", "", "MySQL connection string")
	rootCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "SQLite database file path")
	rootCmd.Flags().StringVar(&mode, "mode", "evidence-gated", "Policy mode: cautious, evidence-gated, or aggressive")
	rootCmd.Flags().Float64Var(&epsilon, "epsilon", 0, "Null-budget epsilon: dirty counts at or below row_count*epsilon read as clean")
	rootCmd.Flags().BoolVar(&enableFKs, "enable-fks", true, "Allow foreign-key materialization decisions")
	rootCmd.Flags().BoolVar(&includePlatform, "include-platform-indexes", false, "Carry platform-generated indexes into the plan")
	rootCmd.Flags().BoolVar(&allowCrossSch, "allow-cross-schema", false, "Allow foreign keys across schemas")
	rootCmd.Flags().BoolVar(&allowCrossCat, "allow-cross-catalog", false, "Allow foreign keys across catalogs")
	rootCmd.Flags().StringVarP(&entities, "entities", "t", "", "Limit profiling and the report to these entities (comma-separated, optional)")
	rootCmd.Flags().StringVar(&excludeEntities, "exclude-entities", "", "Leave these entities out of profiling and the report (comma-separated, optional)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Report output file (default: stdout)")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Report output directory for multi-file output")
	rootCmd.Flags().StringVarP(&format, "format", "f", "text", "Report format: text, markdown, or json")
	rootCmd.Flags().StringVar(&ddlOut, "ddl-out", "", "Write the tightening DDL script to this file")
	rootCmd.Flags().BoolVar(&drift, "drift", false, "Print what the plan would actually change in the live schema")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Max simultaneous entity profiles (default 4)")
	_ = rootCmd.MarkFlagRequired("model")
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	databaseURL, err := resolveDatabaseURL(dbURL, mysqlURL, sqlitePath)
	if err != nil {
		return err
	}
	if outputDir != "" && outputFile != "" {
		return fmt.Errorf("cannot use both --output-dir and --output flags")
	}

	parsedMode, err := policy.ParseMode(mode)
	if err != nil {
		return err
	}
	cfg := schematighten.Config{
		Mode:                   parsedMode,
		EnableForeignKeys:      enableFKs,
		IncludePlatformIndexes: includePlatform,
		NullBudgetEpsilon:      epsilon,
		AllowCrossSchema:       allowCrossSch,
		AllowCrossCatalog:      allowCrossCat,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m, err := schematighten.LoadModel(modelPath)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	var allNames []string
	for i := range m.Entities {
		allNames = append(allNames, m.Entities[i].Name)
	}
	selected := filterEntities(allNames, parseEntityList(entities), parseEntityList(excludeEntities))
	if excludeEntities != "" && len(selected) == 0 {
		return fmt.Errorf("--exclude-entities leaves no entities to profile")
	}

	prof, err := schematighten.Profile(ctx, databaseURL, m, &schematighten.ProfileOptions{
		Entities:    selected,
		Concurrency: concurrency,
	})
	if err != nil {
		return fmt.Errorf("failed to profile database: %w", err)
	}

	rep, err := schematighten.Decide(m, prof, cfg)
	if err != nil {
		return err
	}
	rep = filterReport(rep, selected)

	if err := writeReport(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if drift {
		writeDrift(os.Stdout, schematighten.Compare(rep, prof))
	}

	if outputDir != "" {
		if err := writeManifest(rep); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write run manifest: %v\n", err)
		}
	}

	if ddlOut != "" {
		dialect, err := schematighten.DialectForURL(databaseURL)
		if err != nil {
			return err
		}
		script, err := schematighten.Plan(m, rep, dialect)
		if err != nil {
			return fmt.Errorf("failed to plan DDL: %w", err)
		}
		if err := os.WriteFile(ddlOut, []byte(script.SQL()), 0644); err != nil {
			return fmt.Errorf("failed to write DDL script: %w", err)
		}
	}

	return nil
}

func writeReport(rep *policy.Report) error {
	opts := &schematighten.OutputOptions{Format: format, OutputDir: outputDir}
	if outputDir == "" && outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to close output file: %v\n", err)
			}
		}()
		opts.Writer = f
	}
	return schematighten.WriteReport(rep, opts)
}

// runManifest is the audit envelope around a report: run identity and the
// toggle snapshot. It lives outside policy.Report so the report itself
// stays byte-identical across identical runs.
type runManifest struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Model       string         `json:"model"`
	Config      policy.Config  `json:"config"`
	Summary     policy.Summary `json:"summary"`
}

func writeManifest(rep *policy.Report) error {
	manifest := runManifest{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Model:       modelPath,
		Config:      rep.Config,
		Summary:     rep.Summarize(),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, "_manifest.json"), append(data, '\n'), 0644)
}

// resolveDatabaseURL validates the one-of database flags and returns the
// library-level URL.
func resolveDatabaseURL(pgURL, myURL, sqlite string) (string, error) {
	count := 0
	if pgURL != "" {
		count++
	}
	if myURL != "" {
		count++
	}
	if sqlite != "" {
		count++
	}
	if count == 0 {
		return "", fmt.Errorf("one of --db-url, --mysql-url, or --sqlite must be specified")
	}
	if count > 1 {
		return "", fmt.Errorf("only one of --db-url, --mysql-url, or --sqlite can be specified")
	}

	switch {
	case pgURL != "":
		return pgURL, nil
	case myURL != "":
		if !strings.HasPrefix(myURL, "mysql://") {
			myURL = "mysql://" + myURL
		}
		return myURL, nil
	default:
		return "sqlite://" + sqlite, nil
	}
}

// filterReport narrows a decision report to the selected entities, so the
// entity flags scope the output as well as the profiling. An empty selection
// means no filter.
func filterReport(rep *policy.Report, selected []string) *policy.Report {
	if len(selected) == 0 {
		return rep
	}
	keep := make(map[string]bool, len(selected))
	for _, n := range selected {
		keep[n] = true
	}
	out := &policy.Report{Config: rep.Config}
	for _, d := range rep.Decisions {
		if keep[d.Subject.Entity] {
			out.Decisions = append(out.Decisions, d)
		}
	}
	return out
}

// writeDrift prints the drift findings: which planned tightenings the live
// schema already enforces, which would change it, and which cannot be
// verified from the gathered evidence.
func writeDrift(w io.Writer, findings []schematighten.DriftFinding) {
	s := schematighten.SummarizeDrift(findings)
	_, _ = fmt.Fprintf(w, "DRIFT already-enforced=%d pending=%d unverifiable=%d\n",
		s.AlreadyEnforced, s.Pending, s.Unverifiable)
	for _, f := range findings {
		_, _ = fmt.Fprintf(w, "  [%s] %s: %s\n", f.Status, formatter.SubjectLabel(f.Subject), f.Detail)
	}
}

// filterEntities resolves the include/exclude flags into the final entity
// selection. An empty result with exclusions applied means the caller asked
// for nothing; the distinction from "no filter" matters because an empty
// selection profiles everything.
func filterEntities(all, include, exclude []string) []string {
	if len(exclude) == 0 {
		return include
	}
	base := include
	if len(base) == 0 {
		base = all
	}
	drop := make(map[string]bool, len(exclude))
	for _, n := range exclude {
		drop[n] = true
	}
	var out []string
	for _, n := range base {
		if !drop[n] {
			out = append(out, n)
		}
	}
	return out
}

func parseEntityList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
