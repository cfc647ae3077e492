package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vorion/cognigate/core"
)

// RedisTier adapts a core.Memory (backed by Redis or the in-process
// InMemoryStore) into the Cache's advisory Memory interface, so sharing
// cache state across a process restart is a config choice, never a
// correctness dependency. Lookups and writes use a bounded context so a
// slow Redis never stalls the request path past the gateway's deadlines.
type RedisTier struct {
	store  core.Memory
	prefix string
}

func NewRedisTier(store core.Memory, prefix string) *RedisTier {
	return &RedisTier{store: store, prefix: prefix}
}

func (t *RedisTier) Get(key string) (Entry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	raw, err := t.store.Get(ctx, t.prefix+key)
	if err != nil || raw == "" {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, false
	}
	return e, true
}

func (t *RedisTier) Set(key string, e Entry, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = t.store.Set(ctx, t.prefix+key, string(raw), ttl)
}
