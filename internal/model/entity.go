package model

import "time"

// TrustLevel is the derived band a trust score falls into. See
// TrustLevelForScore for the canonical mapping.
type TrustLevel int

const (
	TrustUntrusted   TrustLevel = 0
	TrustProvisional TrustLevel = 1
	TrustTrusted     TrustLevel = 2
	TrustVerified    TrustLevel = 3
	TrustPrivileged  TrustLevel = 4
)

// TrustLevelForScore maps a clamped [0,1000] trust score to its band.
// Bands: 0-199, 200-399, 400-599, 600-799, 800-1000.
func TrustLevelForScore(score int) TrustLevel {
	switch {
	case score >= 800:
		return TrustPrivileged
	case score >= 600:
		return TrustVerified
	case score >= 400:
		return TrustTrusted
	case score >= 200:
		return TrustProvisional
	default:
		return TrustUntrusted
	}
}

// ClampTrustScore enforces the [0,1000] invariant on a trust score.
func ClampTrustScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 1000 {
		return 1000
	}
	return score
}

// ObservationTier imposes a hard ceiling on how high an entity's trust
// score can rise regardless of accumulated good behavior.
type ObservationTier string

const (
	TierBlackBox ObservationTier = "black_box"
	TierGrayBox  ObservationTier = "gray_box"
	TierWhiteBox ObservationTier = "white_box"
	TierAttested ObservationTier = "attested"
	TierVerified ObservationTier = "verified"
)

// CeilingFraction returns the fraction of the 0-1000 scale an observation
// tier permits an entity's score to reach.
func (t ObservationTier) CeilingFraction() float64 {
	switch t {
	case TierGrayBox:
		return 0.75
	case TierWhiteBox:
		return 0.90
	case TierAttested:
		return 0.95
	case TierVerified:
		return 1.00
	default: // TierBlackBox and unknown
		return 0.60
	}
}

// VelocityWindowState tracks the timestamps of recorded actions for one
// rate-limit tier. Timestamps are kept in ascending order; pruning drops
// anything older than the longest window the limiter tracks.
type VelocityWindowState struct {
	Timestamps []time.Time
}

// Entity is the gateway's view of a requesting agent or human principal.
// It is created implicitly on first sighting and never destroyed.
type Entity struct {
	ID    string
	Tier  ObservationTier

	TrustScore int
	Violations int

	Halted   bool
	ParentID string // empty if this entity has no parent for cascade halts

	// Velocity bookkeeping, one window per tier.
	Windows map[string]*VelocityWindowState

	ThrottledUntil time.Time // zero value means not manually throttled

	CreatedAt  time.Time
	LastSeenAt time.Time
}

// Level returns the entity's current derived trust band.
func (e *Entity) Level() TrustLevel {
	return TrustLevelForScore(e.TrustScore)
}

// Ceiling returns the maximum trust score this entity's observation tier
// permits.
func (e *Entity) Ceiling() int {
	return int(e.Tier.CeilingFraction() * 1000)
}
