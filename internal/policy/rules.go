package policy

// Rule names one evaluation step in the tightening chain. The set is a
// closed enumeration: every decision trail is built from these and nothing
// else, so trails stay comparable across runs.
type Rule string

const (
	RuleIdentifier            Rule = "identifier"
	RulePhysicalReality       Rule = "physical-reality"
	RuleModeGate              Rule = "mode-gate"
	RuleCleanUnique           Rule = "clean-unique"
	RuleMandatoryWithDefault  Rule = "mandatory-with-default"
	RuleEnforcedReference     Rule = "enforced-reference"
	RuleAggressiveFallback    Rule = "aggressive-fallback"
	RuleDefault               Rule = "default"
	RuleCrossBoundary         Rule = "cross-boundary"
	RuleForeignKeyToggle      Rule = "foreign-key-toggle"
	RuleOrphanGate            Rule = "orphan-gate"
	RuleCompositeEvidence     Rule = "composite-evidence"
	RulePlatformIndexToggle   Rule = "platform-index-toggle"
	RuleModelEvidenceConflict Rule = "model-evidence-conflict"
)

// Outcome is the tagged result of evaluating one rule for one subject.
type Outcome string

const (
	// OutcomeNotApplicable records a rule that was evaluated and did not
	// fire. These entries are kept: the trail shows everything considered.
	OutcomeNotApplicable Outcome = "not-applicable"

	OutcomeTighten   Outcome = "fired-tighten"
	OutcomeSkip      Outcome = "fired-skip"
	OutcomeRemediate Outcome = "fired-remediate"

	// OutcomeWarning records a condition surfaced for visibility, such as a
	// model/evidence conflict; it never fires a decision by itself.
	OutcomeWarning Outcome = "warning"
)

// TraceEntry is one step of a rationale trail: which rule ran, the evidence
// it consulted, and how it came out. Trails are append-only and never
// reordered; their byte-level stability is part of the audit contract.
type TraceEntry struct {
	Rule     Rule    `json:"rule"`
	Evidence string  `json:"evidence,omitempty"`
	Outcome  Outcome `json:"outcome"`
	Note     string  `json:"note,omitempty"`
}

func notApplicable(rule Rule, evidence string) TraceEntry {
	return TraceEntry{Rule: rule, Evidence: evidence, Outcome: OutcomeNotApplicable}
}
