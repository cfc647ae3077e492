package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSONSortsObjectKeys(t *testing.T) {
	out, err := canonicalJSON(map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1}`, string(out))
}

func TestCanonicalJSONHasNoInsignificantWhitespace(t *testing.T) {
	out, err := canonicalJSON(map[string]any{"key": []any{1, 2, 3}})
	require.NoError(t, err)
	assert.NotContains(t, string(out), " ")
	assert.NotContains(t, string(out), "\n")
}

func TestCanonicalJSONIsOrderIndependentOnInput(t *testing.T) {
	a, err := canonicalJSON(map[string]any{"x": 1, "y": 2})
	require.NoError(t, err)
	b, err := canonicalJSON(map[string]any{"y": 2, "x": 1})
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestCanonicalJSONNestedObjectKeysAreSorted(t *testing.T) {
	out, err := canonicalJSON(map[string]any{
		"outer": map[string]any{"z": 1, "a": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"outer":{"a":2,"z":1}}`, string(out))
}
