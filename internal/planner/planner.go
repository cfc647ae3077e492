// Package planner normalizes a free-text goal into a structured Plan:
// tool tags, data classifications, and a composed risk score. It is a
// pure, deterministic function of its input so the test suite is stable;
// an LLM-backed planner is an allowed substitute as long as it honors
// the same output contract.
package planner

import (
	"fmt"
	"strings"

	"github.com/vorion/cognigate/internal/model"
)

var toolKeywords = map[string][]string{
	model.ToolShell:       {"shell", "bash", "terminal", "command line", "execute command", "run script"},
	model.ToolFileWrite:   {"write file", "create file", "save file", "edit file"},
	model.ToolFileDelete:  {"delete file", "remove file", "rm ", "erase file", "wipe"},
	model.ToolNetwork:     {"http request", "api call", "fetch url", "download", "upload to"},
	model.ToolDatabase:    {"database", "sql query", "insert into", "drop table", "update table"},
	model.ToolEmail:       {"email", "send mail", "smtp"},
}

var euphemismKeywords = []string{"organize", "clean up", "tidy", "declutter", "sort out", "simplify"}

var systemPaths = []string{"root", "/etc", "/var", "/bin", "system32", "/usr", "c:\\windows"}

var destructiveKeywords = []string{"delete", "remove", "destroy", "erase", "wipe", "purge", "terminate"}

var modificationKeywords = []string{"modify", "change", "update", "alter", "edit", "rewrite"}

// Analyze builds a Plan from a goal string. Keyword matching is
// case-insensitive throughout.
func Analyze(planID, goal string) *model.Plan {
	lower := strings.ToLower(goal)

	plan := &model.Plan{
		PlanID: planID,
		Goal:   goal,
		RiskIndicators: make(map[string]float64),
	}

	for tool, keywords := range toolKeywords {
		if containsAny(lower, keywords) {
			plan.ToolsRequired = append(plan.ToolsRequired, tool)
		}
	}

	if strings.Contains(lower, "email") || strings.Contains(goal, "@") {
		plan.DataClassifications = append(plan.DataClassifications, model.DataPIIEmail)
	}
	if strings.Contains(lower, "password") || strings.Contains(lower, "credential") {
		plan.DataClassifications = append(plan.DataClassifications, model.DataCredentials)
	}
	if containsAny(lower, []string{"ssn", "social security"}) {
		plan.DataClassifications = append(plan.DataClassifications, model.DataPIISSN)
	}

	euphemismCount := countMatches(lower, euphemismKeywords)
	hasSystemPath := containsAny(lower, systemPaths)
	destructiveCount := countMatches(lower, destructiveKeywords)
	modificationCount := countMatches(lower, modificationKeywords)

	const baseRisk = 0.1
	best := baseRisk
	var traceNotes []string

	switch {
	case euphemismCount > 0 && hasSystemPath:
		plan.RiskIndicators["euphemism_attack"] = 0.95
		plan.ToolsRequired = appendUnique(plan.ToolsRequired, model.ToolFileDelete, model.ToolShell)
		best = 0.95
		traceNotes = append(traceNotes, "euphemism paired with a system path looks like a disguised destructive action")
	case euphemismCount > 0:
		v := minF(0.5+0.1*float64(euphemismCount), 0.7)
		plan.RiskIndicators["suspicious_euphemism"] = v
		best = maxF(best, v)
		traceNotes = append(traceNotes, "vague, softened phrasing around an action")
	}

	if destructiveCount > 0 {
		v := minF(0.3*float64(destructiveCount), 0.9)
		plan.RiskIndicators["destructive_intent"] = v
		best = maxF(best, v)
		traceNotes = append(traceNotes, "explicit destructive language")
	}

	if hasSystemPath && euphemismCount == 0 {
		plan.RiskIndicators["system_path_access"] = 0.7
		best = maxF(best, 0.7)
		traceNotes = append(traceNotes, "references a system path directly")
	}

	if modificationCount > 0 {
		v := minF(0.15*float64(modificationCount), 0.5)
		plan.RiskIndicators["modification_intent"] = v
		best = maxF(best, v)
	}

	if plan.HasTool(model.ToolShell) || plan.HasTool(model.ToolFileDelete) {
		plan.RiskIndicators["dangerous_tools"] = 0.7
		best = maxF(best, 0.7)
	}

	plan.RiskScore = model.ClampRisk(best)
	plan.ReasoningTrace = buildTrace(goal, plan, traceNotes)

	return plan
}

func buildTrace(goal string, plan *model.Plan, notes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "goal=%q risk_score=%.2f", goal, plan.RiskScore)
	if len(plan.ToolsRequired) > 0 {
		fmt.Fprintf(&b, " tools=%v", plan.ToolsRequired)
	}
	for _, n := range notes {
		b.WriteString("; ")
		b.WriteString(n)
	}
	return b.String()
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func countMatches(haystack string, needles []string) int {
	count := 0
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			count++
		}
	}
	return count
}

func appendUnique(tools []string, add ...string) []string {
	for _, a := range add {
		found := false
		for _, t := range tools {
			if t == a {
				found = true
				break
			}
		}
		if !found {
			tools = append(tools, a)
		}
	}
	return tools
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
