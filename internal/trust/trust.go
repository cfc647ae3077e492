// Package trust implements the per-entity trust registry (C6): score,
// derived level, observation-tier ceiling, velocity-capped mutations, and
// background decay.
package trust

import (
	"sync"
	"time"

	"github.com/vorion/cognigate/internal/model"
)

// Signed trust_impact values applied by the orchestrator after a verdict.
const (
	ImpactCriticalViolation = -50
	ImpactHighViolation     = -10
	ImpactVelocityViolation = -5
	ImpactCircuitDenial     = -100
)

// Config carries the velocity caps and decay parameters.
type Config struct {
	DefaultLevel  model.TrustLevel
	DecayRate     float64 // fraction of score removed per DecayInterval
	DecayInterval time.Duration
	PerUpdateCap  int
	PerHourCap    int
	PerDayCap     int
}

// record tracks one entity's mutable trust state plus the rolling
// mutation history needed to enforce hourly/daily velocity caps.
type record struct {
	mu         sync.Mutex
	score      int
	tier       model.ObservationTier
	lastDecay  time.Time
	mutations  []mutation
}

type mutation struct {
	at     time.Time
	amount int
}

// Registry owns all entity trust state. It is the only component allowed
// to mutate score; everything else reads through State.
type Registry struct {
	cfg      Config
	mu       sync.RWMutex
	entities map[string]*record
}

// New creates a trust registry. Entities are created lazily on first
// sighting with cfg.DefaultLevel's midpoint score and TierGrayBox.
func New(cfg Config) *Registry {
	if cfg.DecayInterval <= 0 {
		cfg.DecayInterval = 24 * time.Hour
	}
	return &Registry{cfg: cfg, entities: make(map[string]*record)}
}

// State is a read-only snapshot of an entity's trust.
type State struct {
	Score int
	Level model.TrustLevel
	Tier  model.ObservationTier
}

func defaultScoreForLevel(level model.TrustLevel) int {
	switch level {
	case model.TrustUntrusted:
		return 100
	case model.TrustProvisional:
		return 300
	case model.TrustTrusted:
		return 500
	case model.TrustVerified:
		return 700
	case model.TrustPrivileged:
		return 900
	default:
		return 300
	}
}

func (r *Registry) recordFor(entityID string) *record {
	r.mu.RLock()
	rec, ok := r.entities[entityID]
	r.mu.RUnlock()
	if ok {
		return rec
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.entities[entityID]; ok {
		return rec
	}
	rec = &record{
		score:     model.ClampTrustScore(defaultScoreForLevel(r.cfg.DefaultLevel)),
		tier:      model.TierGrayBox,
		lastDecay: time.Now(),
	}
	r.entities[entityID] = rec
	return rec
}

// Get returns an entity's current trust state, applying any decay that
// has accrued since the last mutation or read.
func (r *Registry) Get(entityID string) State {
	rec := r.recordFor(entityID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	r.applyDecayLocked(rec)
	return State{Score: rec.score, Level: model.TrustLevelForScore(rec.score), Tier: rec.tier}
}

// SetTier sets an entity's observation tier, which bounds the score it
// can reach via Apply.
func (r *Registry) SetTier(entityID string, tier model.ObservationTier) {
	rec := r.recordFor(entityID)
	rec.mu.Lock()
	rec.tier = tier
	rec.mu.Unlock()
}

// Apply mutates an entity's score by impact, subject to the per-update,
// per-hour, and per-day velocity caps and the tier ceiling, and returns
// the resulting state. A positive impact is capped; a negative impact is
// never capped (penalties always apply in full, only growth is capped).
func (r *Registry) Apply(entityID string, impact int, now time.Time) State {
	rec := r.recordFor(entityID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	r.applyDecayLocked(rec)

	capped := impact
	if impact > 0 {
		capped = r.capGrowthLocked(rec, impact, now)
	}

	ceiling := int(float64(1000) * rec.tier.CeilingFraction())
	newScore := model.ClampTrustScore(rec.score + capped)
	if newScore > ceiling {
		newScore = ceiling
	}
	rec.score = newScore
	rec.mutations = append(rec.mutations, mutation{at: now, amount: capped})

	return State{Score: rec.score, Level: model.TrustLevelForScore(rec.score), Tier: rec.tier}
}

// capGrowthLocked clamps a positive impact so that per-update, per-hour,
// and per-day totals stay within configured caps.
func (r *Registry) capGrowthLocked(rec *record, impact int, now time.Time) int {
	if r.cfg.PerUpdateCap > 0 && impact > r.cfg.PerUpdateCap {
		impact = r.cfg.PerUpdateCap
	}

	hourSum, daySum := 0, 0
	cutoffHour := now.Add(-time.Hour)
	cutoffDay := now.Add(-24 * time.Hour)
	kept := rec.mutations[:0]
	for _, m := range rec.mutations {
		if m.at.After(cutoffDay) {
			kept = append(kept, m)
			if m.amount > 0 {
				daySum += m.amount
				if m.at.After(cutoffHour) {
					hourSum += m.amount
				}
			}
		}
	}
	rec.mutations = kept

	if r.cfg.PerHourCap > 0 && hourSum+impact > r.cfg.PerHourCap {
		impact = r.cfg.PerHourCap - hourSum
	}
	if r.cfg.PerDayCap > 0 && daySum+impact > r.cfg.PerDayCap {
		impact = r.cfg.PerDayCap - daySum
	}
	if impact < 0 {
		impact = 0
	}
	return impact
}

// applyDecayLocked reduces score by the configured daily rate for every
// whole DecayInterval elapsed since the last decay, never below zero.
// Decay is a pure function of elapsed time; it does not consult circuit
// state, so an open circuit leaves an entity's score unchanged rather
// than accelerating or pausing its decay.
func (r *Registry) applyDecayLocked(rec *record) {
	if r.cfg.DecayRate <= 0 {
		return
	}
	now := time.Now()
	elapsed := now.Sub(rec.lastDecay)
	if elapsed < r.cfg.DecayInterval {
		return
	}
	periods := int(elapsed / r.cfg.DecayInterval)
	for i := 0; i < periods; i++ {
		rec.score = model.ClampTrustScore(rec.score - int(float64(rec.score)*r.cfg.DecayRate))
	}
	rec.lastDecay = rec.lastDecay.Add(time.Duration(periods) * r.cfg.DecayInterval)
}
