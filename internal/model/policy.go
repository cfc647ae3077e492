package model

// Severity orders policy constraint violations. Order matters: it is used
// to pick the worst violation for verdict decisioning.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ConditionKind enumerates the fixed predicate set constraints are allowed
// to express, replacing the prototype's string-sniffed condition text
// (spec §9 Design Notes).
type ConditionKind string

const (
	CondToolWithTrustBelow   ConditionKind = "tool_with_trust_below"   // tool in tools_required AND trust_level < threshold
	CondToolPresent          ConditionKind = "tool_present"            // tool in tools_required
	CondPIIWithTrustBelow    ConditionKind = "pii_with_trust_below"    // any pii_* classification AND trust_level < threshold
	CondDataClassPresent     ConditionKind = "data_class_present"      // classification in data_classifications
	CondRiskAbove            ConditionKind = "risk_above"              // risk_score > threshold
	CondRiskAboveWithTrustBelow ConditionKind = "risk_above_with_trust_below" // risk_score > threshold AND trust_level < trust_threshold
)

// Condition is a single evaluable predicate over a plan and trust level.
type Condition struct {
	Kind           ConditionKind
	Tool           string  // for CondToolWithTrustBelow, CondToolPresent
	DataClass      string  // for CondDataClassPresent
	RiskThreshold  float64 // for CondRiskAbove, CondRiskAboveWithTrustBelow
	TrustThreshold TrustLevel
}

// Constraint is one rule within a policy.
type Constraint struct {
	ID               string
	Type             string
	Severity         Severity
	Message          string
	RequiresApproval bool
	Condition        Condition
}

// Policy groups an ordered list of constraints under a catalog id.
type Policy struct {
	ID          string
	Name        string
	Constraints []Constraint
}

// RigorMode controls how much of the policy catalog is evaluated.
type RigorMode string

const (
	RigorStrict   RigorMode = "STRICT"
	RigorStandard RigorMode = "STANDARD"
	RigorLite     RigorMode = "LITE"
)

// PolicyViolation is a single constraint violation surfaced in a verdict.
type PolicyViolation struct {
	PolicyID         string
	ConstraintID     string
	Severity         Severity
	Message          string
	Blocked          bool
	RequiresApproval bool
	Remediation      string
}
