package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vorion/cognigate/internal/model"
)

func TestAnalyzeBenignGoalHasLowRisk(t *testing.T) {
	plan := Analyze("p1", "summarize last week's support tickets")
	assert.Less(t, plan.RiskScore, 0.3)
	assert.Empty(t, plan.ToolsRequired)
}

func TestAnalyzeDetectsShellTool(t *testing.T) {
	plan := Analyze("p1", "run script to restart the service")
	assert.Contains(t, plan.ToolsRequired, model.ToolShell)
	assert.GreaterOrEqual(t, plan.RiskScore, 0.7)
}

func TestAnalyzeDetectsEmailPII(t *testing.T) {
	plan := Analyze("p1", "send an email to ops@example.com about the outage")
	assert.Contains(t, plan.DataClassifications, model.DataPIIEmail)
}

func TestAnalyzeDetectsCredentials(t *testing.T) {
	plan := Analyze("p1", "rotate the database password")
	assert.Contains(t, plan.DataClassifications, model.DataCredentials)
}

func TestAnalyzeEuphemismPairedWithSystemPathIsHighestRisk(t *testing.T) {
	plan := Analyze("p1", "clean up the /etc directory")
	require.InDelta(t, 0.95, plan.RiskScore, 0.001)
	assert.Contains(t, plan.ToolsRequired, model.ToolFileDelete)
	assert.Contains(t, plan.ToolsRequired, model.ToolShell)
}

func TestAnalyzeDestructiveLanguageRaisesRisk(t *testing.T) {
	plan := Analyze("p1", "delete and purge the old log files")
	assert.Greater(t, plan.RiskScore, 0.1)
	assert.Contains(t, plan.RiskIndicators, "destructive_intent")
}

func TestAnalyzeRiskScoreIsClamped(t *testing.T) {
	plan := Analyze("p1", "delete destroy erase wipe purge terminate remove /etc /var /bin root system32")
	assert.LessOrEqual(t, plan.RiskScore, 1.0)
}

func TestAnalyzeReasoningTraceIncludesGoalAndScore(t *testing.T) {
	plan := Analyze("p1", "run script")
	assert.Contains(t, plan.ReasoningTrace, "run script")
	assert.Contains(t, plan.ReasoningTrace, "risk_score=0.70")
}
