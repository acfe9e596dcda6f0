package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	defaultTenantLockTTL      = 30 * time.Second
	defaultPollInitialBackoff = 500 * time.Millisecond
	defaultPollMaxBackoff     = 10 * time.Second
)

type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultPollInitialBackoff
	}
	max := s.Max
	if max <= 0 {
		max = defaultPollMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// MemoryTenantLocker serializes same-tenant runs in a single process. TTL
// expiry keeps a crashed run from holding its tenant forever.
type MemoryTenantLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	nowFn func() time.Time
}

func NewMemoryTenantLocker() *MemoryTenantLocker {
	return &MemoryTenantLocker{
		locks: make(map[string]time.Time),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryTenantLocker) Acquire(_ context.Context, tenantKey string, ttl time.Duration) (LockHandle, error) {
	if l == nil {
		return nil, fmt.Errorf("core: tenant locker is not configured")
	}
	tenantKey = strings.TrimSpace(tenantKey)
	if tenantKey == "" {
		return nil, fmt.Errorf("core: tenant key is required for lock acquisition")
	}
	if ttl <= 0 {
		ttl = defaultTenantLockTTL
	}

	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.locks[tenantKey]; ok && now.Before(until) {
		return nil, fmt.Errorf("core: pairing lock already held for tenant %q", tenantKey)
	}
	l.locks[tenantKey] = now.Add(ttl)
	return &memoryLockHandle{locker: l, tenantKey: tenantKey}, nil
}

type memoryLockHandle struct {
	locker    *MemoryTenantLocker
	tenantKey string
	once      sync.Once
}

func (h *memoryLockHandle) Unlock(_ context.Context) error {
	if h == nil || h.locker == nil {
		return nil
	}
	h.once.Do(func() {
		h.locker.mu.Lock()
		delete(h.locker.locks, h.tenantKey)
		h.locker.mu.Unlock()
	})
	return nil
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ TenantLocker = (*MemoryTenantLocker)(nil)
