package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vorion/cognigate/internal/model"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "proof-" + string(rune('a'+n-1))
	}
}

func TestAppendFirstRecordChainsFromGenesis(t *testing.T) {
	l := New(sequentialIDs())
	now := time.Now().UTC()

	rec := l.Append("intent-1", "verdict-1", "e1", "plan-1", "allow", []string{"p1"}, model.Verdict{
		Allowed: true, Action: model.ActionAllow, TrustImpact: 5,
	}, now)

	assert.Equal(t, model.GenesisHash, rec.PreviousHash)
	assert.Equal(t, 0, rec.ChainPosition)
	assert.NotEmpty(t, rec.Hash)
}

func TestAppendSecondRecordChainsFromFirst(t *testing.T) {
	l := New(sequentialIDs())
	now := time.Now().UTC()

	first := l.Append("i1", "v1", "e1", "p1", "allow", []string{"p1"}, model.Verdict{Allowed: true, Action: model.ActionAllow}, now)
	second := l.Append("i2", "v2", "e1", "p2", "allow", []string{"p1"}, model.Verdict{Allowed: true, Action: model.ActionAllow}, now.Add(time.Second))

	assert.Equal(t, first.Hash, second.PreviousHash)
	assert.Equal(t, 1, second.ChainPosition)
}

func TestVerifyDetectsHashTampering(t *testing.T) {
	l := New(sequentialIDs())
	now := time.Now().UTC()
	l.Append("i1", "v1", "e1", "p1", "allow", []string{"p1"}, model.Verdict{Allowed: true, Action: model.ActionAllow}, now)

	l.mu.Lock()
	l.records[0].Hash = "tampered"
	l.mu.Unlock()

	result := l.Verify(0)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Issues, "hash mismatch")
}

func TestVerifyDetectsBrokenChainLink(t *testing.T) {
	l := New(sequentialIDs())
	now := time.Now().UTC()
	l.Append("i1", "v1", "e1", "p1", "allow", []string{"p1"}, model.Verdict{Allowed: true, Action: model.ActionAllow}, now)
	l.Append("i2", "v2", "e1", "p2", "allow", []string{"p1"}, model.Verdict{Allowed: true, Action: model.ActionAllow}, now.Add(time.Second))

	l.mu.Lock()
	l.records[1].PreviousHash = "not-the-real-previous-hash"
	l.mu.Unlock()

	result := l.Verify(1)
	assert.False(t, result.Valid)
	assert.False(t, result.ChainValid)
}

func TestVerifyDetectsPriorRecordFieldTamperingWithoutHashChange(t *testing.T) {
	l := New(sequentialIDs())
	now := time.Now().UTC()
	l.Append("i1", "v1", "e1", "p1", "allow", []string{"p1"}, model.Verdict{Allowed: true, Action: model.ActionAllow}, now)
	l.Append("i2", "v2", "e1", "p2", "allow", []string{"p1"}, model.Verdict{Allowed: true, Action: model.ActionAllow}, now.Add(time.Second))

	// Mutate record 0's Decision without touching its stored Hash, the way
	// an attacker editing the backing store directly would. Record 0's own
	// Verify(0) still sees this (hash mismatch), but the bug this guards
	// against is Verify(1) trusting record 0's stale stored Hash instead of
	// recomputing it, which would let the tamper through undetected.
	l.mu.Lock()
	l.records[0].Decision = model.DecisionDenied
	l.mu.Unlock()

	result := l.Verify(1)
	assert.False(t, result.Valid)
	assert.False(t, result.ChainValid)
	assert.Contains(t, result.Issues, "previous_hash mismatch")
}

func TestVerifyChainIsConjunctionOfAllRecords(t *testing.T) {
	l := New(sequentialIDs())
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		l.Append("i1", "v1", "e1", "p1", "allow", []string{"p1"}, model.Verdict{Allowed: true, Action: model.ActionAllow}, now.Add(time.Duration(i)*time.Second))
	}
	assert.True(t, l.VerifyChain())

	l.mu.Lock()
	l.records[2].Hash = "broken"
	l.mu.Unlock()
	assert.False(t, l.VerifyChain())
}

func TestQueryFiltersByEntityAndDecision(t *testing.T) {
	l := New(sequentialIDs())
	now := time.Now().UTC()
	l.Append("i1", "v1", "e1", "p1", "allow", []string{"p1"}, model.Verdict{Allowed: true, Action: model.ActionAllow}, now)
	l.Append("i2", "v2", "e2", "p2", "allow", []string{"p1"}, model.Verdict{Allowed: false, Action: model.ActionDeny}, now.Add(time.Second))

	results := l.Query(model.ProofQuery{EntityID: "e1"})
	require.Len(t, results, 1)
	assert.Equal(t, "e1", results[0].EntityID)

	denied := l.Query(model.ProofQuery{Decision: model.DecisionDenied})
	require.Len(t, denied, 1)
	assert.Equal(t, "e2", denied[0].EntityID)
}

func TestQueryAppliesOffsetAndLimit(t *testing.T) {
	l := New(sequentialIDs())
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		l.Append("i1", "v1", "e1", "p1", "allow", []string{"p1"}, model.Verdict{Allowed: true, Action: model.ActionAllow}, now.Add(time.Duration(i)*time.Second))
	}

	page := l.Query(model.ProofQuery{Offset: 1, Limit: 2})
	require.Len(t, page, 2)
}

func TestStatsSummarizesLedger(t *testing.T) {
	l := New(sequentialIDs())
	now := time.Now().UTC()
	l.Append("i1", "v1", "e1", "p1", "allow", []string{"p1"}, model.Verdict{Allowed: true, Action: model.ActionAllow}, now)
	l.Append("i2", "v2", "e1", "p2", "deny", []string{"p1"}, model.Verdict{Allowed: false, Action: model.ActionDeny}, now.Add(time.Second))

	stats := l.Stats()
	assert.Equal(t, 2, stats.TotalRecords)
	assert.True(t, stats.ChainIntegrity)
	assert.Equal(t, 1, stats.RecordsByDecision[model.DecisionAllowed])
	assert.Equal(t, 1, stats.RecordsByDecision[model.DecisionDenied])
	require.NotNil(t, stats.LastRecordAt)
}

func TestSnapshotDoesNotAliasBackingArray(t *testing.T) {
	l := New(sequentialIDs())
	now := time.Now().UTC()
	l.Append("i1", "v1", "e1", "p1", "allow", []string{"p1"}, model.Verdict{Allowed: true, Action: model.ActionAllow}, now)

	snap := l.Snapshot()
	snap[0].EntityID = "mutated"

	fresh := l.Snapshot()
	assert.Equal(t, "e1", fresh[0].EntityID)
}
