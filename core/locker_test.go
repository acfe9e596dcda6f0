package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryTenantLockerSerializesSameTenant(t *testing.T) {
	locker := NewMemoryTenantLocker()
	ctx := context.Background()

	handle, err := locker.Acquire(ctx, "cust_1/main", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if _, err := locker.Acquire(ctx, "cust_1/main", time.Minute); err == nil {
		t.Fatalf("expected second acquisition for same tenant to fail")
	}

	if _, err := locker.Acquire(ctx, "cust_2/main", time.Minute); err != nil {
		t.Fatalf("expected different tenant to acquire, got %v", err)
	}

	if err := handle.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := locker.Acquire(ctx, "cust_1/main", time.Minute); err != nil {
		t.Fatalf("expected acquisition after unlock, got %v", err)
	}
}

func TestMemoryTenantLockerTTLExpiry(t *testing.T) {
	current := time.Now().UTC()
	locker := NewMemoryTenantLocker()
	locker.nowFn = func() time.Time { return current }
	ctx := context.Background()

	if _, err := locker.Acquire(ctx, "cust_1/main", 30*time.Second); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := locker.Acquire(ctx, "cust_1/main", 30*time.Second); err == nil {
		t.Fatalf("expected lock held before expiry")
	}

	current = current.Add(31 * time.Second)
	if _, err := locker.Acquire(ctx, "cust_1/main", 30*time.Second); err != nil {
		t.Fatalf("expected expired lock to be reacquired, got %v", err)
	}
}

func TestMemoryTenantLockerUnlockIsIdempotent(t *testing.T) {
	locker := NewMemoryTenantLocker()
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "cust_1/main", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := first.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	second, err := locker.Acquire(ctx, "cust_1/main", time.Minute)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}

	// A stale double-unlock must not release the new holder's lock.
	if err := first.Unlock(ctx); err != nil {
		t.Fatalf("stale unlock: %v", err)
	}
	if _, err := locker.Acquire(ctx, "cust_1/main", time.Minute); err == nil {
		t.Fatalf("expected lock still held by second handle")
	}
	if err := second.Unlock(ctx); err != nil {
		t.Fatalf("unlock second: %v", err)
	}
}

func TestMemoryTenantLockerRejectsEmptyKey(t *testing.T) {
	locker := NewMemoryTenantLocker()
	if _, err := locker.Acquire(context.Background(), "   ", time.Minute); err == nil {
		t.Fatalf("expected empty tenant key to be rejected")
	}
}

func TestExponentialBackoffSchedulerCapsAtMax(t *testing.T) {
	scheduler := ExponentialBackoffScheduler{
		Initial: 500 * time.Millisecond,
		Max:     4 * time.Second,
	}
	expectations := map[int]time.Duration{
		0: 500 * time.Millisecond,
		1: 500 * time.Millisecond,
		2: time.Second,
		3: 2 * time.Second,
		4: 4 * time.Second,
		9: 4 * time.Second,
	}
	for attempt, want := range expectations {
		if got := scheduler.NextDelay(attempt); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
}
