// Package policy implements the baseline policy catalog and the
// evaluator that scores a plan against it under a rigor mode (C7).
//
// Conditions are expressed with the fixed ConditionKind predicate enum
// in internal/model, not string-sniffed text, per the redesign mandate
// that replaces the prototype's substring-matched constraint conditions.
package policy

import (
	"github.com/vorion/cognigate/internal/model"
)

const (
	PolicyCoreSecurity    = "basis-core-security"
	PolicyDataProtection  = "basis-data-protection"
	PolicyRiskThresholds  = "basis-risk-thresholds"
)

// Catalog returns the required baseline policies, in a fixed order so
// rigor filtering and STRICT evaluation are deterministic.
func Catalog() []model.Policy {
	return []model.Policy{
		{
			ID:   PolicyCoreSecurity,
			Name: "Core Security",
			Constraints: []model.Constraint{
				{
					ID:       "no-shell-low-trust",
					Type:     "tool-trust-gate",
					Severity: model.SeverityCritical,
					Message:  "shell access requires trust level 3 or higher",
					Condition: model.Condition{
						Kind:           model.CondToolWithTrustBelow,
						Tool:           model.ToolShell,
						TrustThreshold: model.TrustVerified,
					},
				},
				{
					ID:               "no-delete-without-approval",
					Type:             "tool-gate",
					Severity:         model.SeverityHigh,
					Message:          "file deletion requires approval",
					RequiresApproval: true,
					Condition: model.Condition{
						Kind: model.CondToolPresent,
						Tool: model.ToolFileDelete,
					},
				},
			},
		},
		{
			ID:   PolicyDataProtection,
			Name: "Data Protection",
			Constraints: []model.Constraint{
				{
					ID:       "pii-requires-l2",
					Type:     "data-trust-gate",
					Severity: model.SeverityCritical,
					Message:  "PII access requires trust level 2 or higher",
					Condition: model.Condition{
						Kind:           model.CondPIIWithTrustBelow,
						TrustThreshold: model.TrustTrusted,
					},
				},
				{
					ID:       "credentials-audit",
					Type:     "data-gate",
					Severity: model.SeverityHigh,
					Message:  "credential access is flagged for audit",
					Condition: model.Condition{
						Kind:      model.CondDataClassPresent,
						DataClass: model.DataCredentials,
					},
				},
			},
		},
		{
			ID:   PolicyRiskThresholds,
			Name: "Risk Thresholds",
			Constraints: []model.Constraint{
				{
					ID:       "high-risk-block",
					Type:     "risk-gate",
					Severity: model.SeverityCritical,
					Message:  "risk score exceeds the hard block threshold",
					Condition: model.Condition{
						Kind:          model.CondRiskAbove,
						RiskThreshold: 0.8,
					},
				},
				{
					ID:               "medium-risk-escalate",
					Type:             "risk-trust-gate",
					Severity:         model.SeverityHigh,
					Message:          "elevated risk at low trust requires approval",
					RequiresApproval: true,
					Condition: model.Condition{
						Kind:           model.CondRiskAboveWithTrustBelow,
						RiskThreshold:  0.5,
						TrustThreshold: model.TrustVerified,
					},
				},
			},
		},
	}
}

// standardSet and liteSet name the policies kept under STANDARD and LITE
// rigor; STRICT keeps everything.
var standardSet = map[string]bool{
	PolicyCoreSecurity:   true,
	PolicyDataProtection: true,
	PolicyRiskThresholds: true,
}

var liteSet = map[string]bool{
	PolicyCoreSecurity:   true,
	PolicyRiskThresholds: true,
}

// RigorForTrust maps a trust level to its default rigor mode: 0-2 →
// STRICT, 3 → STANDARD, 4 → LITE.
func RigorForTrust(level model.TrustLevel) model.RigorMode {
	switch {
	case level >= model.TrustPrivileged:
		return model.RigorLite
	case level == model.TrustVerified:
		return model.RigorStandard
	default:
		return model.RigorStrict
	}
}

// FilterPolicies narrows the catalog to the policies a rigor mode
// evaluates.
func FilterPolicies(catalog []model.Policy, rigor model.RigorMode) []model.Policy {
	switch rigor {
	case model.RigorStandard:
		return filterBySet(catalog, standardSet)
	case model.RigorLite:
		return filterBySet(catalog, liteSet)
	default:
		return catalog
	}
}

func filterBySet(catalog []model.Policy, set map[string]bool) []model.Policy {
	var out []model.Policy
	for _, p := range catalog {
		if set[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// evaluateCondition tests one constraint's condition against a plan and
// trust level.
func evaluateCondition(c model.Condition, plan *model.Plan, level model.TrustLevel) bool {
	switch c.Kind {
	case model.CondToolWithTrustBelow:
		return plan.HasTool(c.Tool) && level < c.TrustThreshold
	case model.CondToolPresent:
		return plan.HasTool(c.Tool)
	case model.CondPIIWithTrustBelow:
		return plan.HasPII() && level < c.TrustThreshold
	case model.CondDataClassPresent:
		return plan.HasDataClassification(c.DataClass)
	case model.CondRiskAbove:
		return plan.RiskScore > c.RiskThreshold
	case model.CondRiskAboveWithTrustBelow:
		return plan.RiskScore > c.RiskThreshold && level < c.TrustThreshold
	default:
		return false
	}
}

// Evaluate runs every constraint in the given (already-filtered) policy
// list against plan and trustLevel, returning the collected violations.
func Evaluate(policies []model.Policy, plan *model.Plan, trustLevel model.TrustLevel) ([]model.PolicyViolation, int) {
	var violations []model.PolicyViolation
	constraintsEvaluated := 0

	for _, p := range policies {
		for _, c := range p.Constraints {
			constraintsEvaluated++
			if evaluateCondition(c.Condition, plan, trustLevel) {
				violations = append(violations, model.PolicyViolation{
					PolicyID:         p.ID,
					ConstraintID:     c.ID,
					Severity:         c.Severity,
					Message:          c.Message,
					Blocked:          c.Severity == model.SeverityCritical,
					RequiresApproval: c.RequiresApproval,
				})
			}
		}
	}

	return violations, constraintsEvaluated
}

// Decide turns a set of violations into the final action, following
// §4.7 step 4: critical wins outright, else high/requires_approval
// escalates, else allow.
func Decide(violations []model.PolicyViolation) (action model.VerdictAction, allowed bool, trustImpact int, approvalTimeout string) {
	hasCritical := false
	hasEscalating := false

	for _, v := range violations {
		if v.Severity == model.SeverityCritical {
			hasCritical = true
		}
		if v.Severity == model.SeverityHigh || v.RequiresApproval {
			hasEscalating = true
		}
	}

	switch {
	case hasCritical:
		return model.ActionDeny, false, -50, ""
	case hasEscalating:
		return model.ActionEscalate, false, -10, "4h"
	default:
		return model.ActionAllow, true, 0, ""
	}
}
