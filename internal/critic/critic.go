// Package critic gates risky plans through an adversarial reviewer
// before they reach policy evaluation (C5). Providers satisfy a small
// capability set instead of an inheritance hierarchy: any type with
// Analyze and ModelName can be plugged in, and provider selection is
// data (a config string), not type dispatch.
package critic

import (
	"context"
	"strings"
	"time"

	"github.com/vorion/cognigate/internal/model"
)

// Provider is the capability set every critic adapter must satisfy.
type Provider interface {
	Analyze(ctx context.Context, req model.CriticRequest) (model.CriticVerdict, error)
	ModelName() string
}

// GateTools lists the tools whose presence forces a critic review
// regardless of risk score.
var GateTools = []string{model.ToolShell, model.ToolFileDelete, model.ToolDatabase, model.ToolNetwork}

// ShouldGate reports whether a plan must go through the critic: risk
// score at or above 0.3, or any gate tool required.
func ShouldGate(plan *model.Plan) bool {
	if plan.RiskScore >= 0.3 {
		return true
	}
	for _, t := range GateTools {
		if plan.HasTool(t) {
			return true
		}
	}
	return false
}

// Reviewer wraps a Provider with the fallback behavior spec §4.5
// requires on transport failure or timeout.
type Reviewer struct {
	provider Provider
	newID    func() string
}

// New wraps a provider. newID mints critic ids (model.NewCriticID in
// production, a fixed generator in tests).
func New(provider Provider, newID func() string) *Reviewer {
	return &Reviewer{provider: provider, newID: newID}
}

// Review calls the provider and falls back to a cautious verdict on any
// error, including context deadline exceeded. The fallback is never
// propagated as an error: a critic transport failure must not fail the
// request (spec §7 kind 5).
func (r *Reviewer) Review(ctx context.Context, req model.CriticRequest) model.CriticVerdict {
	start := time.Now()
	verdict, err := r.provider.Analyze(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		return model.CriticVerdict{
			CriticID:            r.newID(),
			PlanID:              req.PlanID,
			Judgment:            model.JudgmentSuspicious,
			Confidence:          0.3,
			RiskAdjustment:      0.1,
			RequiresHumanReview: true,
			RecommendedAction:   model.RecommendEscalate,
			Reasoning:           "critic provider unavailable, applying cautious fallback",
			ModelUsed:           r.provider.ModelName(),
			CreatedAt:           time.Now().UTC(),
			DurationMS:          float64(elapsed.Milliseconds()),
		}
	}

	verdict.DurationMS = float64(elapsed.Milliseconds())
	if verdict.CreatedAt.IsZero() {
		verdict.CreatedAt = time.Now().UTC()
	}
	return verdict
}

// Apply augments plan with a critic verdict per spec §4.5: clamps the
// adjusted risk score, appends hidden risks as indicators, and extends
// the reasoning trace. It returns a new Plan value; the original is left
// untouched, matching the "plan -> critic review -> augmented plan"
// redesign in the design notes.
func Apply(plan *model.Plan, verdict model.CriticVerdict) *model.Plan {
	augmented := *plan
	augmented.RiskIndicators = make(map[string]float64, len(plan.RiskIndicators)+len(verdict.HiddenRisks))
	for k, v := range plan.RiskIndicators {
		augmented.RiskIndicators[k] = v
	}
	for _, risk := range verdict.HiddenRisks {
		augmented.RiskIndicators["critic_"+risk] = verdict.Confidence
	}

	augmented.RiskScore = model.ClampRisk(plan.RiskScore + verdict.RiskAdjustment)

	reasoning := verdict.Reasoning
	if len(reasoning) > 100 {
		reasoning = reasoning[:100]
	}
	augmented.ReasoningTrace = plan.ReasoningTrace + "; critic judgment=" + string(verdict.Judgment) + " reasoning=" + reasoning

	return &augmented
}

// CRITIC_SYSTEM_PROMPT-equivalent instruction sent to every provider.
// Kept as a Go identifier rather than the source's all-caps constant
// name, but the adversarial framing is preserved verbatim in spirit.
const SystemPrompt = `You are an adversarial reviewer for an AI agent governance gateway.
Assume bad intent until proven otherwise. Given a plan's goal, tools, and the
planner's own risk assessment, identify hidden risks the planner may have
missed. Respond with a single JSON object matching this schema:
{"judgment":"safe|suspicious|dangerous|block","confidence":0.0,"risk_adjustment":0.0,
"hidden_risks":[],"reasoning":"","concerns":[],"requires_human_review":false,
"recommended_action":"proceed|escalate|block|modify"}
Do not wrap the JSON in markdown fences.`

// StripMarkdownFence removes a leading/trailing ``` or ```json fence from
// a provider response before JSON parsing, per spec §4.5.
func StripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
