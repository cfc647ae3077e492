package model

import (
	"strings"
	"time"
)

// ProofDecision is the past-tense form of a verdict action, recorded on
// the proof ledger.
type ProofDecision string

const (
	DecisionAllowed    ProofDecision = "allowed"
	DecisionDenied     ProofDecision = "denied"
	DecisionEscalated  ProofDecision = "escalated"
	DecisionModified   ProofDecision = "modified"
)

// ActionToDecision maps a verdict action to its proof-record decision verb.
func ActionToDecision(a VerdictAction) ProofDecision {
	switch a {
	case ActionAllow:
		return DecisionAllowed
	case ActionDeny:
		return DecisionDenied
	case ActionEscalate:
		return DecisionEscalated
	case ActionModify:
		return DecisionModified
	default:
		return DecisionDenied
	}
}

// ProofRecord is one tamper-evident entry in the append-only ledger.
type ProofRecord struct {
	ProofID       string
	ChainPosition int

	IntentID string
	VerdictID string
	EntityID string

	ActionType string
	Decision   ProofDecision

	InputsHash  string
	OutputsHash string

	PreviousHash string
	Hash         string
	Signature    string // empty unless a signer is configured

	CreatedAt time.Time
	Metadata  map[string]any
}

// ProofQuery filters a ledger read, applied in chain order.
type ProofQuery struct {
	EntityID  string
	IntentID  string
	VerdictID string
	Decision  ProofDecision
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

// ProofVerification is the result of checking one record's hash and its
// linkage to its predecessor.
type ProofVerification struct {
	ProofID        string
	Valid          bool
	ChainValid     bool
	SignatureValid *bool
	Issues         []string
	VerifiedAt     time.Time
}

// ProofStats summarizes the ledger for the /v1/proof/stats endpoint.
type ProofStats struct {
	TotalRecords      int
	ChainLength       int
	LastRecordAt      *time.Time
	RecordsByDecision map[ProofDecision]int
	ChainIntegrity    bool
}

// GenesisHash is the previous_hash value recorded on the first ledger entry:
// 64 zero characters, the width of a SHA-256 hex digest.
var GenesisHash = strings.Repeat("0", 64)
