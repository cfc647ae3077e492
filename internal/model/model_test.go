package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustLevelForScoreBandBoundaries(t *testing.T) {
	assert.Equal(t, TrustUntrusted, TrustLevelForScore(0))
	assert.Equal(t, TrustUntrusted, TrustLevelForScore(199))
	assert.Equal(t, TrustProvisional, TrustLevelForScore(200))
	assert.Equal(t, TrustTrusted, TrustLevelForScore(400))
	assert.Equal(t, TrustVerified, TrustLevelForScore(600))
	assert.Equal(t, TrustPrivileged, TrustLevelForScore(800))
	assert.Equal(t, TrustPrivileged, TrustLevelForScore(1000))
}

func TestClampTrustScoreEnforcesBounds(t *testing.T) {
	assert.Equal(t, 0, ClampTrustScore(-50))
	assert.Equal(t, 1000, ClampTrustScore(5000))
	assert.Equal(t, 500, ClampTrustScore(500))
}

func TestCeilingFractionPerTier(t *testing.T) {
	assert.Equal(t, 0.60, TierBlackBox.CeilingFraction())
	assert.Equal(t, 0.75, TierGrayBox.CeilingFraction())
	assert.Equal(t, 0.90, TierWhiteBox.CeilingFraction())
	assert.Equal(t, 0.95, TierAttested.CeilingFraction())
	assert.Equal(t, 1.00, TierVerified.CeilingFraction())
}

func TestEntityCeilingUsesTierFraction(t *testing.T) {
	e := &Entity{Tier: TierGrayBox, TrustScore: 900}
	assert.Equal(t, 750, e.Ceiling())
	assert.Equal(t, TrustPrivileged, e.Level())
}

func TestClampRiskEnforcesBounds(t *testing.T) {
	assert.Equal(t, 0.0, ClampRisk(-0.5))
	assert.Equal(t, 1.0, ClampRisk(1.5))
	assert.Equal(t, 0.4, ClampRisk(0.4))
}

func TestPlanHasToolAndDataClassificationAndPII(t *testing.T) {
	p := &Plan{
		ToolsRequired:       []string{ToolShell},
		DataClassifications: []string{DataPIIEmail},
	}
	assert.True(t, p.HasTool(ToolShell))
	assert.False(t, p.HasTool(ToolNetwork))
	assert.True(t, p.HasDataClassification(DataPIIEmail))
	assert.True(t, p.HasPII())

	p2 := &Plan{DataClassifications: []string{DataCredentials}}
	assert.False(t, p2.HasPII())
}

func TestActionToDecisionMapsEveryAction(t *testing.T) {
	assert.Equal(t, DecisionAllowed, ActionToDecision(ActionAllow))
	assert.Equal(t, DecisionDenied, ActionToDecision(ActionDeny))
	assert.Equal(t, DecisionEscalated, ActionToDecision(ActionEscalate))
	assert.Equal(t, DecisionModified, ActionToDecision(ActionModify))
}

func TestIntentIDFromPlanIsDeterministic(t *testing.T) {
	planID := NewPlanID()
	assert.Equal(t, IntentIDFromPlan(planID), IntentIDFromPlan(planID))
}
