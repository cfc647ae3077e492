package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vorion/cognigate/internal/model"
)

// fileConstraint mirrors model.Constraint in YAML-friendly field names.
// Condition.Kind is validated against the fixed ConditionKind enum so a
// catalog file can't reintroduce string-sniffed conditions.
type fileConstraint struct {
	ID               string  `yaml:"id"`
	Type             string  `yaml:"type"`
	Severity         string  `yaml:"severity"`
	Message          string  `yaml:"message"`
	RequiresApproval bool    `yaml:"requires_approval"`
	Condition        struct {
		Kind           string  `yaml:"kind"`
		Tool           string  `yaml:"tool"`
		DataClass      string  `yaml:"data_class"`
		RiskThreshold  float64 `yaml:"risk_threshold"`
		TrustThreshold int     `yaml:"trust_threshold"`
	} `yaml:"condition"`
}

type filePolicy struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Constraints []fileConstraint `yaml:"constraints"`
}

type fileCatalog struct {
	Policies []filePolicy `yaml:"policies"`
}

var validConditionKinds = map[string]model.ConditionKind{
	string(model.CondToolWithTrustBelow):      model.CondToolWithTrustBelow,
	string(model.CondToolPresent):             model.CondToolPresent,
	string(model.CondPIIWithTrustBelow):       model.CondPIIWithTrustBelow,
	string(model.CondDataClassPresent):        model.CondDataClassPresent,
	string(model.CondRiskAbove):               model.CondRiskAbove,
	string(model.CondRiskAboveWithTrustBelow): model.CondRiskAboveWithTrustBelow,
}

// LoadCatalogFile reads a supplemental YAML policy catalog and returns only
// its policies; CatalogWithSupplement appends them after the built-in
// baseline (Catalog()), never replacing it: the baseline's
// core-security/data-protection/risk-threshold policies are load-bearing
// for spec §4.7 and are not user-configurable.
func LoadCatalogFile(path string) ([]model.Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read catalog file: %w", err)
	}

	var fc fileCatalog
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("policy: parse catalog file: %w", err)
	}

	extra := make([]model.Policy, 0, len(fc.Policies))
	for _, fp := range fc.Policies {
		p := model.Policy{ID: fp.ID, Name: fp.Name}
		for _, fcst := range fp.Constraints {
			kind, ok := validConditionKinds[fcst.Condition.Kind]
			if !ok {
				return nil, fmt.Errorf("policy: constraint %q: unknown condition kind %q", fcst.ID, fcst.Condition.Kind)
			}
			p.Constraints = append(p.Constraints, model.Constraint{
				ID:               fcst.ID,
				Type:             fcst.Type,
				Severity:         model.Severity(fcst.Severity),
				Message:          fcst.Message,
				RequiresApproval: fcst.RequiresApproval,
				Condition: model.Condition{
					Kind:           kind,
					Tool:           fcst.Condition.Tool,
					DataClass:      fcst.Condition.DataClass,
					RiskThreshold:  fcst.Condition.RiskThreshold,
					TrustThreshold: model.TrustLevel(fcst.Condition.TrustThreshold),
				},
			})
		}
		extra = append(extra, p)
	}
	return extra, nil
}

// CatalogWithSupplement returns the baseline catalog with an optional
// supplemental file's policies appended. path may be empty, in which case
// the baseline catalog is returned unchanged. Supplemental policies are
// not in standardSet/liteSet, so STANDARD and LITE rigor never evaluate
// them; only STRICT does.
func CatalogWithSupplement(path string) ([]model.Policy, error) {
	base := Catalog()
	if path == "" {
		return base, nil
	}
	extra, err := LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	return append(base, extra...), nil
}
