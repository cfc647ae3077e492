// Package model defines the shared data types that flow between the
// gateway's components: entities, plans, verdicts, critic output, and
// proof records. Types here are deliberately flat and schema-validated
// instead of free-form maps, per the gateway's design constraints.
package model

import "github.com/google/uuid"

// newID mints an opaque identifier with the given documented prefix,
// matching the entity_id/plan_id/verdict_id scheme in the HTTP surface.
func newID(prefix string) string {
	return prefix + uuid.New().String()[:12]
}

func NewIntentID() string  { return newID("int_") }
func NewPlanID() string    { return newID("plan_") }
func NewVerdictID() string { return newID("vrd_") }
func NewProofID() string   { return newID("prf_") }
func NewCriticID() string  { return newID("crit_") }
func NewRequestID() string { return newID("req_") }

// IntentIDFromPlan derives a stably-linkable intent id from a plan id by
// reusing its random suffix, so an intent and the plan it normalized
// always share that suffix without a separate lookup table.
func IntentIDFromPlan(planID string) string {
	if len(planID) > 5 {
		return "int_" + planID[5:]
	}
	return "int_" + planID
}
