// Package velocity implements the per-entity, multi-tier rate limiter
// (C2). Every check and record for a given entity is serialized through
// that entity's own mutex, so within one entity observed order matches
// wall-clock order; across entities no ordering is guaranteed.
package velocity

import (
	"sync"
	"time"

	"github.com/vorion/cognigate/internal/model"
)

// Tier names, reported on denial.
const (
	TierL0Burst     = "L0_burst"
	TierL1Sustained = "L1_sustained"
	TierL2Hourly    = "L2_hourly"
	TierL2Daily     = "L2_daily"
)

// limit is one (max_actions, window) pair.
type limit struct {
	tier   string
	max    int
	window time.Duration
}

// table[trustLevel] is the ordered tier list checked for that level;
// order matters, the first violated tier is reported.
var table = map[model.TrustLevel][]limit{
	model.TrustUntrusted: {
		{TierL0Burst, 2, time.Second},
		{TierL1Sustained, 10, 60 * time.Second},
		{TierL2Hourly, 50, time.Hour},
		{TierL2Daily, 200, 24 * time.Hour},
	},
	model.TrustProvisional: {
		{TierL0Burst, 5, time.Second},
		{TierL1Sustained, 30, 60 * time.Second},
		{TierL2Hourly, 200, time.Hour},
		{TierL2Daily, 1000, 24 * time.Hour},
	},
	model.TrustTrusted: {
		{TierL0Burst, 10, time.Second},
		{TierL1Sustained, 60, 60 * time.Second},
		{TierL2Hourly, 500, time.Hour},
		{TierL2Daily, 5000, 24 * time.Hour},
	},
	model.TrustVerified: {
		{TierL0Burst, 20, time.Second},
		{TierL1Sustained, 120, 60 * time.Second},
		{TierL2Hourly, 2000, time.Hour},
		{TierL2Daily, 20000, 24 * time.Hour},
	},
	model.TrustPrivileged: {
		{TierL0Burst, 50, time.Second},
		{TierL1Sustained, 300, 60 * time.Second},
		{TierL2Hourly, 10000, time.Hour},
		{TierL2Daily, 100000, 24 * time.Hour},
	},
}

// Decision is the outcome of a velocity check.
type Decision struct {
	Allowed          bool
	Tier             string
	RetryAfterSeconds float64
	Limit            int
	WindowLabel      string
}

// entityState holds one entity's timestamp history behind its own lock.
type entityState struct {
	mu             sync.Mutex
	timestamps     []time.Time
	throttledUntil time.Time
}

// Limiter tracks per-entity state for the multi-tier limiter.
type Limiter struct {
	mu       sync.RWMutex
	entities map[string]*entityState
	pruneAge time.Duration
}

// New creates a limiter that prunes timestamps older than pruneAge
// (spec: 1 day) on every record.
func New(pruneAge time.Duration) *Limiter {
	if pruneAge <= 0 {
		pruneAge = 24 * time.Hour
	}
	return &Limiter{entities: make(map[string]*entityState), pruneAge: pruneAge}
}

func (l *Limiter) state(entityID string) *entityState {
	l.mu.RLock()
	st, ok := l.entities[entityID]
	l.mu.RUnlock()
	if ok {
		return st
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.entities[entityID]; ok {
		return st
	}
	st = &entityState{}
	l.entities[entityID] = st
	return st
}

// Throttle manually throttles an entity until the given deadline. A
// throttled check always fails with that deadline regardless of the
// tier tables.
func (l *Limiter) Throttle(entityID string, until time.Time) {
	st := l.state(entityID)
	st.mu.Lock()
	st.throttledUntil = until
	st.mu.Unlock()
}

// Check evaluates all tiers for trustLevel in order and returns the
// first violated tier, or Allowed=true if none are violated. It does not
// record the action; callers call Record separately after the rest of
// the pipeline admits the request.
func (l *Limiter) Check(entityID string, trustLevel model.TrustLevel, now time.Time) Decision {
	st := l.state(entityID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if now.Before(st.throttledUntil) {
		return Decision{
			Allowed:           false,
			Tier:              "manual-throttle",
			RetryAfterSeconds: st.throttledUntil.Sub(now).Seconds(),
		}
	}

	tiers := table[trustLevel]
	for _, t := range tiers {
		windowStart := now.Add(-t.window)
		count := 0
		oldest := now
		for _, ts := range st.timestamps {
			if ts.After(windowStart) {
				count++
				if ts.Before(oldest) {
					oldest = ts
				}
			}
		}
		if count >= t.max {
			retryAfter := oldest.Add(t.window).Sub(now).Seconds()
			if retryAfter < 0 {
				retryAfter = 0
			}
			return Decision{
				Allowed:           false,
				Tier:              t.tier,
				RetryAfterSeconds: retryAfter,
				Limit:             t.max,
				WindowLabel:       t.tier,
			}
		}
	}

	return Decision{Allowed: true}
}

// Record appends an action timestamp for entityID and prunes entries
// older than the configured retention window.
func (l *Limiter) Record(entityID string, now time.Time) {
	st := l.state(entityID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.timestamps = append(st.timestamps, now)

	cutoff := now.Add(-l.pruneAge)
	pruned := st.timestamps[:0]
	for _, ts := range st.timestamps {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}
	st.timestamps = pruned
}
