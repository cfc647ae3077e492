package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vorion/cognigate/internal/model"
)

func writeCatalogFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadCatalogFileParsesPoliciesAndConstraints(t *testing.T) {
	path := writeCatalogFile(t, `
policies:
  - id: custom-policy
    name: Custom Policy
    constraints:
      - id: custom-risk-cap
        type: risk
        severity: high
        message: risk too high for this tenant
        condition:
          kind: risk_above
          risk_threshold: 0.5
`)

	policies, err := LoadCatalogFile(path)
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, "custom-policy", policies[0].ID)
	require.Len(t, policies[0].Constraints, 1)
	assert.Equal(t, model.CondRiskAbove, policies[0].Constraints[0].Condition.Kind)
	assert.Equal(t, 0.5, policies[0].Constraints[0].Condition.RiskThreshold)
}

func TestLoadCatalogFileRejectsUnknownConditionKind(t *testing.T) {
	path := writeCatalogFile(t, `
policies:
  - id: bad-policy
    name: Bad Policy
    constraints:
      - id: bad-constraint
        condition:
          kind: not_a_real_kind
`)

	_, err := LoadCatalogFile(path)
	assert.Error(t, err)
}

func TestLoadCatalogFileMissingFileReturnsError(t *testing.T) {
	_, err := LoadCatalogFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestCatalogWithSupplementAppendsAfterBaseline(t *testing.T) {
	path := writeCatalogFile(t, `
policies:
  - id: custom-policy
    name: Custom Policy
    constraints: []
`)

	catalog, err := CatalogWithSupplement(path)
	require.NoError(t, err)
	assert.Len(t, catalog, len(Catalog())+1)
	assert.Equal(t, "custom-policy", catalog[len(catalog)-1].ID)
}
