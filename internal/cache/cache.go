// Package cache memoizes policy verdicts keyed on the inputs that
// deterministically produce them (C8). It is advisory: disabling it or
// evicting an entry never changes what Evaluate would have returned, only
// whether it's computed again.
package cache

import (
	"container/list"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vorion/cognigate/internal/model"
)

// Key builds the cache key from the inputs that determine a verdict:
// plan id, the sorted set of policy ids evaluated, trust level, and rigor
// mode. Sorting the policy ids makes the key order-independent.
func Key(planID string, policyIDs []string, trustLevel model.TrustLevel, rigor model.RigorMode) string {
	sorted := append([]string(nil), policyIDs...)
	sort.Strings(sorted)
	var b strings.Builder
	b.WriteString(planID)
	b.WriteByte('|')
	b.WriteString(strings.Join(sorted, ","))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(int(trustLevel)))
	b.WriteByte('|')
	b.WriteString(string(rigor))
	return b.String()
}

// Entry is the cached, reproducible portion of a Verdict: verdict_id,
// duration_ms, and decided_at are excluded because they differ on every
// evaluation and would defeat the whole point of caching.
type Entry struct {
	Allowed              bool
	Action               model.VerdictAction
	Violations           []model.PolicyViolation
	PoliciesEvaluated    []string
	ConstraintsEvaluated int
	TrustImpact          int
	RequiresApproval     bool
	ApprovalTimeout      string
	Modifications        map[string]any
	RigorMode            model.RigorMode
}

type node struct {
	key       string
	value     Entry
	expiresAt time.Time
}

// Cache is a bounded, LRU-evicting, TTL-expiring map guarded by a single
// mutex. Result caching is read-mostly and low-volume enough that striped
// locking (named in the design notes as the target shape) buys nothing a
// single sync.Mutex doesn't already give at this scale. The orchestrator in
// C10 calls Get and Put without a lock of its own, and no Cache call spans
// an evaluation.
type Cache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	maxItems int
	ttl      time.Duration
	enabled  bool

	advisory Memory
}

// Memory is an optional secondary tier (e.g. Redis-backed) consulted on a
// local miss and populated on a local write. A nil Memory disables it.
type Memory interface {
	Get(key string) (Entry, bool)
	Set(key string, e Entry, ttl time.Duration)
}

// New builds a Cache. advisory may be nil.
func New(maxItems int, ttl time.Duration, enabled bool, advisory Memory) *Cache {
	return &Cache{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		maxItems: maxItems,
		ttl:      ttl,
		enabled:  enabled,
		advisory: advisory,
	}
}

// Get returns the cached entry and whether it was found and still fresh.
func (c *Cache) Get(key string) (Entry, bool) {
	if !c.enabled {
		return Entry{}, false
	}

	c.mu.Lock()
	el, ok := c.items[key]
	if ok {
		n := el.Value.(*node)
		if time.Now().After(n.expiresAt) {
			c.removeLocked(el)
			ok = false
		} else {
			c.order.MoveToFront(el)
		}
	}
	var hit Entry
	if ok {
		hit = el.Value.(*node).value
	}
	c.mu.Unlock()

	if ok {
		return hit, true
	}

	if c.advisory != nil {
		if v, found := c.advisory.Get(key); found {
			c.Put(key, v)
			return v, true
		}
	}
	return Entry{}, false
}

// Put stores an entry, evicting the least-recently-used item if the cache
// is at capacity.
func (c *Cache) Put(key string, value Entry) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		el.Value.(*node).value = value
		el.Value.(*node).expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
	} else {
		n := &node{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}
		el := c.order.PushFront(n)
		c.items[key] = el
		if c.maxItems > 0 && c.order.Len() > c.maxItems {
			c.removeLocked(c.order.Back())
		}
	}
	c.mu.Unlock()

	if c.advisory != nil {
		c.advisory.Set(key, value, c.ttl)
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	n := el.Value.(*node)
	delete(c.items, n.key)
	c.order.Remove(el)
}

// Len reports the number of live entries, for diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Enabled reports whether the cache is active.
func (c *Cache) Enabled() bool { return c.enabled }
