// Package ledger implements the append-only, hash-chained proof record
// store (C9). Every verdict produces one record linked to its predecessor
// by SHA-256 hash; verification recomputes and compares those hashes.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/vorion/cognigate/internal/model"
)

// Ledger is a single-writer, many-reader append-only record store. A
// single mutex serializes appends; readers take a snapshot slice that
// never aliases the mutable backing array. Taking the snapshot holds the
// same mutex while the records are copied, so a reader blocks Append for
// the length of that copy; reading the returned slice needs no lock.
type Ledger struct {
	mu       sync.Mutex
	records  []model.ProofRecord
	lastHash string
	newID    func() string
}

// New builds an empty ledger. newID mints proof ids (model.NewProofID in
// production, a fixed generator in tests).
func New(newID func() string) *Ledger {
	return &Ledger{lastHash: model.GenesisHash, newID: newID}
}

type inputsPayload struct {
	PlanID   string   `json:"plan_id"`
	Policies []string `json:"policies"`
}

type outputsPayload struct {
	Allowed         bool `json:"allowed"`
	ViolationsCount int  `json:"violations_count"`
	TrustImpact     int  `json:"trust_impact"`
}

// hashable mirrors ProofRecord's fields except Hash and Signature, which
// must be excluded from the hash input per spec §4.9 step 3.
type hashable struct {
	ProofID       string         `json:"proof_id"`
	ChainPosition int            `json:"chain_position"`
	IntentID      string         `json:"intent_id"`
	VerdictID     string         `json:"verdict_id"`
	EntityID      string         `json:"entity_id"`
	ActionType    string         `json:"action_type"`
	Decision      string         `json:"decision"`
	InputsHash    string         `json:"inputs_hash"`
	OutputsHash   string         `json:"outputs_hash"`
	PreviousHash  string         `json:"previous_hash"`
	CreatedAt     time.Time      `json:"created_at"`
	Metadata      map[string]any `json:"metadata"`
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// recomputeHash derives rec's hash fresh from its current hashable fields.
// Verify uses this for both the record under test and its predecessor, so
// that tampering with any non-hash field of either record — not just the
// stored Hash value — is detected.
func recomputeHash(rec model.ProofRecord) string {
	hashInput, _ := canonicalJSON(hashable{
		ProofID:       rec.ProofID,
		ChainPosition: rec.ChainPosition,
		IntentID:      rec.IntentID,
		VerdictID:     rec.VerdictID,
		EntityID:      rec.EntityID,
		ActionType:    rec.ActionType,
		Decision:      string(rec.Decision),
		InputsHash:    rec.InputsHash,
		OutputsHash:   rec.OutputsHash,
		PreviousHash:  rec.PreviousHash,
		CreatedAt:     rec.CreatedAt,
		Metadata:      rec.Metadata,
	})
	return sha256Hex(hashInput)
}

// Append records one verdict outcome and returns the new record. It is the
// only mutation entrypoint; the orchestrator calls it after a verdict has
// been fully decided, never before (spec §5: never leave partial state).
func (l *Ledger) Append(intentID, verdictID, entityID, planID, actionType string, policyIDs []string, v model.Verdict, now time.Time) model.ProofRecord {
	inputsJSON, _ := canonicalJSON(inputsPayload{PlanID: planID, Policies: policyIDs})
	outputsJSON, _ := canonicalJSON(outputsPayload{
		Allowed:         v.Allowed,
		ViolationsCount: len(v.Violations),
		TrustImpact:     v.TrustImpact,
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	position := len(l.records)
	rec := model.ProofRecord{
		ProofID:       l.newID(),
		ChainPosition: position,
		IntentID:      intentID,
		VerdictID:     verdictID,
		EntityID:      entityID,
		ActionType:    actionType,
		Decision:      model.ActionToDecision(v.Action),
		InputsHash:    sha256Hex(inputsJSON),
		OutputsHash:   sha256Hex(outputsJSON),
		PreviousHash:  l.lastHash,
		CreatedAt:     now,
	}

	rec.Hash = recomputeHash(rec)

	l.records = append(l.records, rec)
	l.lastHash = rec.Hash
	return rec
}

// Snapshot returns a copy of the current record slice; safe to read
// concurrently with Append since it never aliases the backing array.
func (l *Ledger) Snapshot() []model.ProofRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.ProofRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Verify recomputes record i's hash and checks its link to i-1.
func (l *Ledger) Verify(i int) model.ProofVerification {
	snap := l.Snapshot()
	now := time.Now().UTC()
	if i < 0 || i >= len(snap) {
		return model.ProofVerification{Valid: false, Issues: []string{"record not found"}, VerifiedAt: now}
	}
	rec := snap[i]

	recomputed := recomputeHash(rec)

	var issues []string
	hashValid := recomputed == rec.Hash
	if !hashValid {
		issues = append(issues, "hash mismatch")
	}

	// expectedPrev must be recomputed from record i-1's own current fields,
	// not read from its stored Hash: a tamper that mutates a non-hash field
	// of record i-1 without touching its Hash leaves the stored value
	// looking intact, and trusting it would let that tamper pass undetected.
	chainValid := true
	expectedPrev := model.GenesisHash
	if i > 0 {
		expectedPrev = recomputeHash(snap[i-1])
	}
	if rec.PreviousHash != expectedPrev {
		chainValid = false
		issues = append(issues, "previous_hash mismatch")
	}

	return model.ProofVerification{
		ProofID:    rec.ProofID,
		Valid:      hashValid && chainValid,
		ChainValid: chainValid,
		Issues:     issues,
		VerifiedAt: now,
	}
}

// VerifyChain checks every record in order; integrity is the conjunction
// of all per-record verifications.
func (l *Ledger) VerifyChain() bool {
	n := l.Len()
	for i := 0; i < n; i++ {
		if !l.Verify(i).Valid {
			return false
		}
	}
	return true
}

// Len reports the number of records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Query filters the ledger in chain order, applying offset/limit last.
func (l *Ledger) Query(q model.ProofQuery) []model.ProofRecord {
	snap := l.Snapshot()
	var matched []model.ProofRecord
	for _, r := range snap {
		if q.EntityID != "" && r.EntityID != q.EntityID {
			continue
		}
		if q.IntentID != "" && r.IntentID != q.IntentID {
			continue
		}
		if q.VerdictID != "" && r.VerdictID != q.VerdictID {
			continue
		}
		if q.Decision != "" && r.Decision != q.Decision {
			continue
		}
		if !q.StartDate.IsZero() && r.CreatedAt.Before(q.StartDate) {
			continue
		}
		if !q.EndDate.IsZero() && r.CreatedAt.After(q.EndDate) {
			continue
		}
		matched = append(matched, r)
	}

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched
}

// Stats summarizes the ledger for the /v1/proof/stats endpoint.
func (l *Ledger) Stats() model.ProofStats {
	snap := l.Snapshot()
	stats := model.ProofStats{
		TotalRecords:      len(snap),
		ChainLength:       len(snap),
		RecordsByDecision: make(map[model.ProofDecision]int),
		ChainIntegrity:    l.VerifyChain(),
	}
	for _, r := range snap {
		stats.RecordsByDecision[r.Decision]++
	}
	if len(snap) > 0 {
		last := snap[len(snap)-1].CreatedAt
		stats.LastRecordAt = &last
	}
	return stats
}
