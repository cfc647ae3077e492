package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vorion/cognigate/internal/breaker"
	"github.com/vorion/cognigate/internal/cache"
	"github.com/vorion/cognigate/internal/critic"
	"github.com/vorion/cognigate/internal/ledger"
	"github.com/vorion/cognigate/internal/model"
	"github.com/vorion/cognigate/internal/policy"
	"github.com/vorion/cognigate/internal/tripwire"
	"github.com/vorion/cognigate/internal/trust"
	"github.com/vorion/cognigate/internal/velocity"
)

type fakeProvider struct {
	verdict model.CriticVerdict
}

func (f *fakeProvider) Analyze(ctx context.Context, req model.CriticRequest) (model.CriticVerdict, error) {
	return f.verdict, nil
}

func (f *fakeProvider) ModelName() string { return "fake-model" }

func sequentialProofIDs() func() string {
	n := 0
	return func() string {
		n++
		return "proof-" + string(rune('a'+n-1))
	}
}

func newTestGateway(criticOn bool, verdict model.CriticVerdict) *Gateway {
	reviewer := critic.New(&fakeProvider{verdict: verdict}, func() string { return "critic-1" })
	return New(Deps{
		Tripwire: tripwire.New(),
		Velocity: velocity.New(time.Hour),
		Breaker:  breaker.New(nil),
		Trust: trust.New(trust.Config{
			DefaultLevel:  model.TrustProvisional,
			DecayInterval: 24 * time.Hour,
			PerUpdateCap:  1000,
			PerHourCap:    1000,
			PerDayCap:     1000,
		}),
		Catalog:         policy.Catalog(),
		Cache:           cache.New(256, time.Minute, true, nil),
		Ledger:          ledger.New(sequentialProofIDs()),
		Reviewer:        reviewer,
		CriticEnabled:   criticOn,
		RequestDeadline: time.Second,
		CriticDeadline:  time.Second,
	})
}

func TestIntentTripwireBlocksAndStoresResult(t *testing.T) {
	g := newTestGateway(false, model.CriticVerdict{})

	result := g.Intent(context.Background(), "e1", "rm -rf /")
	assert.Equal(t, "blocked", result.Status)
	assert.Equal(t, 1.0, result.Plan.RiskScore)
	assert.Contains(t, result.Plan.ToolsRequired, model.ToolBlockedMark)

	stored, ok := g.LookupIntent(result.IntentID)
	require.True(t, ok)
	assert.Equal(t, "blocked", stored.Status)
}

func TestIntentBenignGoalIsNormalized(t *testing.T) {
	g := newTestGateway(false, model.CriticVerdict{})

	result := g.Intent(context.Background(), "e1", "summarize last week's tickets")
	assert.Equal(t, "normalized", result.Status)
	assert.Equal(t, model.TrustProvisional, result.TrustLevel)

	_, ok := g.LookupIntent(result.IntentID)
	assert.True(t, ok)
}

func TestIntentCriticBlockOverridesPlannerVerdict(t *testing.T) {
	g := newTestGateway(true, model.CriticVerdict{Judgment: model.JudgmentBlock})

	result := g.Intent(context.Background(), "e1", "run script to restart the service")
	assert.Equal(t, "blocked", result.Status)
	assert.Equal(t, 1.0, result.Plan.RiskScore)
}

func TestIntentCriticSafeVerdictPassesThrough(t *testing.T) {
	g := newTestGateway(true, model.CriticVerdict{Judgment: model.JudgmentSafe, Confidence: 0.9})

	result := g.Intent(context.Background(), "e1", "run script to restart the service")
	assert.Equal(t, "normalized", result.Status)
}

func TestEnforceAllowsBenignPlan(t *testing.T) {
	g := newTestGateway(false, model.CriticVerdict{})
	plan := &model.Plan{PlanID: "p1", RiskScore: 0.1}

	result := g.Enforce(context.Background(), "e1", plan)
	assert.True(t, result.Verdict.Allowed)
	assert.Equal(t, model.ActionAllow, result.Verdict.Action)
}

func TestEnforceDeniesShellAtLowTrust(t *testing.T) {
	g := newTestGateway(false, model.CriticVerdict{})
	plan := &model.Plan{PlanID: "p1", ToolsRequired: []string{model.ToolShell}}

	result := g.Enforce(context.Background(), "e1", plan)
	assert.False(t, result.Verdict.Allowed)
	assert.Equal(t, model.ActionDeny, result.Verdict.Action)
}

func TestEnforceUsesCacheOnSecondIdenticalRequest(t *testing.T) {
	g := newTestGateway(false, model.CriticVerdict{})
	plan := &model.Plan{PlanID: "p1", RiskScore: 0.1}

	first := g.Enforce(context.Background(), "e1", plan)
	second := g.Enforce(context.Background(), "e1", plan)

	assert.Equal(t, first.Verdict.Allowed, second.Verdict.Allowed)
	assert.Equal(t, first.Verdict.Action, second.Verdict.Action)
}

func TestEnforceVelocityBurstDeniesAndAppliesTrustImpact(t *testing.T) {
	g := newTestGateway(false, model.CriticVerdict{})
	plan := &model.Plan{PlanID: "p1", RiskScore: 0.1}

	before := g.trust.Get("e1").Score

	var last EnforceResult
	for i := 0; i < 10; i++ {
		last = g.Enforce(context.Background(), "e1", plan)
	}

	assert.False(t, last.Verdict.Allowed)
	assert.Equal(t, model.ActionDeny, last.Verdict.Action)
	after := g.trust.Get("e1").Score
	assert.Less(t, after, before)
}

func TestEnforceDeniesWhenCircuitOpen(t *testing.T) {
	g := newTestGateway(false, model.CriticVerdict{})

	for i := 0; i < 3; i++ {
		g.breaker.Record(breaker.Outcome{EntityID: "e1", Tripwire: true})
	}
	require.Equal(t, breaker.StateOpen, g.BreakerState())

	plan := &model.Plan{PlanID: "p1", RiskScore: 0.1}
	result := g.Enforce(context.Background(), "e1", plan)
	assert.False(t, result.Verdict.Allowed)
	assert.Equal(t, "system-circuit-breaker", result.Verdict.Violations[0].ConstraintID)
}

func TestAppendProofWritesToLedgerAndIsQueryable(t *testing.T) {
	g := newTestGateway(false, model.CriticVerdict{})
	plan := &model.Plan{PlanID: "p1", RiskScore: 0.1}

	result := g.Enforce(context.Background(), "e1", plan)
	rec := g.AppendProof("e1", result.Verdict)

	assert.Equal(t, "e1", rec.EntityID)
	assert.True(t, g.Ledger().VerifyChain())

	queried := g.Ledger().Query(model.ProofQuery{EntityID: "e1"})
	require.Len(t, queried, 1)
}

func TestThrottleEntityDeniesSubsequentEnforce(t *testing.T) {
	g := newTestGateway(false, model.CriticVerdict{})
	g.ThrottleEntity("e1", time.Now().Add(time.Hour))

	plan := &model.Plan{PlanID: "p1", RiskScore: 0.1}
	result := g.Enforce(context.Background(), "e1", plan)
	assert.False(t, result.Verdict.Allowed)
}

func TestHaltEntityCascadesToRegisteredChildren(t *testing.T) {
	g := newTestGateway(false, model.CriticVerdict{})
	g.RegisterChild("parent", "child")

	g.HaltEntity("parent")
	assert.False(t, g.breaker.Allow("parent"))
	assert.False(t, g.breaker.Allow("child"))
}

func TestUnhaltEntityRestoresAllow(t *testing.T) {
	g := newTestGateway(false, model.CriticVerdict{})
	g.HaltEntity("e1")
	assert.False(t, g.breaker.Allow("e1"))

	g.UnhaltEntity("e1")
	assert.True(t, g.breaker.Allow("e1"))
}

func TestPoliciesReturnsFullCatalog(t *testing.T) {
	g := newTestGateway(false, model.CriticVerdict{})
	assert.Equal(t, policy.Catalog(), g.Policies())
}
