// Package tripwire implements the deterministic, side-effect-free pattern
// check that runs before any other component sees a goal string.
package tripwire

import "regexp"

// Severity is fixed at "critical" for every pattern in the table; the
// constant exists so callers don't pass around bare strings.
const Severity = "critical"

// Result is the outcome of checking a single goal string.
type Result struct {
	Triggered        bool
	PatternName      string
	MatchedSubstring string
	Severity         string
}

type pattern struct {
	name string
	re   *regexp.Regexp
}

// Matcher holds a compiled, ordered pattern list. Order matters: the
// first match wins.
type Matcher struct {
	patterns []pattern
}

// New compiles the default pattern table. Patterns target direct
// destructive intent and prompt-injection phrasing rather than the
// planner's keyword tables, which score risk instead of blocking
// outright.
func New() *Matcher {
	table := []struct {
		name string
		expr string
	}{
		{"destroy-filesystem-root", `(?i)\brm\s+-rf\s+/`},
		{"format-primary-disk", `(?i)\b(format|wipe)\s+(the\s+)?(disk|drive|volume)\b`},
		{"drop-production-database", `(?i)\bdrop\s+(table|database|schema)\b.*\bproduction\b`},
		{"disable-audit-logging", `(?i)\b(disable|turn\s+off|bypass)\s+(audit|security)\s+logg?ing\b`},
		{"exfiltrate-credentials", `(?i)\b(exfiltrate|dump|leak)\s+(credentials|secrets|api\s+keys|passwords)\b`},
		{"prompt-injection-ignore-instructions", `(?i)\bignore\s+(all\s+)?(previous|prior|above)\s+instructions\b`},
		{"prompt-injection-system-override", `(?i)\byou\s+are\s+now\s+(in\s+)?(developer|admin|unrestricted|jailbreak)\s+mode\b`},
		{"self-replicate", `(?i)\b(self[-\s]?replicat|spawn\s+copies\s+of\s+yourself)\b`},
		{"disable-safety-controls", `(?i)\b(disable|remove|bypass)\s+(safety|guardrail|governance)\s+(controls?|checks?)\b`},
	}

	m := &Matcher{patterns: make([]pattern, 0, len(table))}
	for _, t := range table {
		m.patterns = append(m.patterns, pattern{name: t.name, re: regexp.MustCompile(t.expr)})
	}
	return m
}

// Check scans goal against the compiled pattern table in order and
// returns on the first match. It never mutates state and is safe to call
// concurrently from any number of goroutines.
func (m *Matcher) Check(goal string) Result {
	for _, p := range m.patterns {
		if loc := p.re.FindStringIndex(goal); loc != nil {
			return Result{
				Triggered:        true,
				PatternName:      p.name,
				MatchedSubstring: goal[loc[0]:loc[1]],
				Severity:         Severity,
			}
		}
	}
	return Result{Triggered: false}
}
