package cron

import (
	"context"
	"testing"
	"time"
)

type memoryLockStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) DelIfValue(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := newMemoryLockStore()
	ctx := context.Background()
	first, err := NewRedisLock(store, "garage:lock:cron", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "garage:lock:cron", 0)

	if ok, _ := first.Acquire(ctx); !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if store.ttls["garage:lock:cron"] != defaultLockTTL {
		t.Fatalf("expected default ttl, got %s", store.ttls["garage:lock:cron"])
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatalf("expected second acquire to fail")
	}

	// A worker that never held the lease must not clear it.
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, held := store.values["garage:lock:cron"]; !held {
		t.Fatalf("lease cleared by a non-owner")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatalf("expected acquire after release")
	}
}

func TestRedisLockKeepsForeignLease(t *testing.T) {
	store := newMemoryLockStore()
	ctx := context.Background()
	lock, _ := NewRedisLock(store, "k", time.Minute)
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatalf("expected acquire")
	}
	// Lease expired and another worker took it.
	store.values["k"] = "someone-else"

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["k"] != "someone-else" {
		t.Fatalf("expected foreign lease to survive release")
	}
}
