package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vorion/cognigate/internal/model"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore { return &fakeStore{data: map[string]string{}} }

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.data[key]
	return ok, nil
}

func TestRedisTierSetThenGetRoundTrips(t *testing.T) {
	tier := NewRedisTier(newFakeStore(), "cognigate:cache:")

	entry := Entry{Allowed: true, Action: model.ActionAllow, ConstraintsEvaluated: 3}
	tier.Set("key-1", entry, time.Minute)

	got, ok := tier.Get("key-1")
	require.True(t, ok)
	assert.Equal(t, entry.Allowed, got.Allowed)
	assert.Equal(t, entry.ConstraintsEvaluated, got.ConstraintsEvaluated)
}

func TestRedisTierGetMissReturnsFalse(t *testing.T) {
	tier := NewRedisTier(newFakeStore(), "cognigate:cache:")

	_, ok := tier.Get("missing")
	assert.False(t, ok)
}

func TestRedisTierKeysAreNamespacedByPrefix(t *testing.T) {
	store := newFakeStore()
	tier := NewRedisTier(store, "cognigate:cache:")

	tier.Set("key-1", Entry{Allowed: true}, time.Minute)
	_, ok := store.data["cognigate:cache:key-1"]
	assert.True(t, ok)
}
