package policy

import "fmt"

// Mode is the overall risk posture governing which rules may fire.
type Mode string

const (
	// ModeCautious disables all evidence-based tightening. Only the
	// identifier and physical-reality rules can still tighten.
	ModeCautious Mode = "cautious"

	// ModeEvidenceGated tightens only where live evidence is clean.
	ModeEvidenceGated Mode = "evidence-gated"

	// ModeAggressive additionally tightens dirty subjects behind an
	// explicit remediation step.
	ModeAggressive Mode = "aggressive"
)

// ParseMode maps a user-facing mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCautious, ModeEvidenceGated, ModeAggressive:
		return Mode(s), nil
	}
	return "", &ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q (must be cautious, evidence-gated, or aggressive)", s)}
}

// Config is the immutable tightening configuration for one evaluation run.
// It is threaded through the call explicitly; the engine keeps no ambient
// state.
type Config struct {
	Mode Mode `json:"mode"`

	// EnableForeignKeys allows foreign-key materialization decisions to
	// tighten at all.
	EnableForeignKeys bool `json:"enable_foreign_keys"`

	// IncludePlatformIndexes is a pass-through for the translator; the
	// engine records a decision per platform index so the toggle's effect
	// stays auditable.
	IncludePlatformIndexes bool `json:"include_platform_indexes"`

	// NullBudgetEpsilon is the tolerated fraction of dirty rows: a count at
	// or below row_count*epsilon reads as zero for evidence purposes. Must
	// be in [0, 1).
	NullBudgetEpsilon float64 `json:"null_budget_epsilon"`

	AllowCrossSchema  bool `json:"allow_cross_schema"`
	AllowCrossCatalog bool `json:"allow_cross_catalog"`
}

// ConfigError reports an invalid configuration value. It aborts a run
// before any decision is attempted.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Validate rejects out-of-range toggle values.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeCautious, ModeEvidenceGated, ModeAggressive:
	default:
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", string(c.Mode))}
	}
	if c.NullBudgetEpsilon < 0 {
		return &ConfigError{Field: "null_budget_epsilon", Reason: "must not be negative"}
	}
	if c.NullBudgetEpsilon >= 1 {
		return &ConfigError{Field: "null_budget_epsilon", Reason: "must be a small fraction below 1"}
	}
	return nil
}
