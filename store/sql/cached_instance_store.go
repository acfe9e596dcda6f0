package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-channels/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const instanceCacheKeyPrefix = "go-channels::instance::v1"

type cachedInstanceLookup struct {
	Record core.ChannelInstanceRecord
	Found  bool
}

// CachedInstanceStore layers a read-through cache over an instance store.
// Writes go to the base store first and then invalidate, so a stale hit can
// only ever show the previous committed row.
type CachedInstanceStore struct {
	base  core.InstanceStore
	cache repositorycache.CacheService
}

func NewCachedInstanceStore(
	base core.InstanceStore,
	cacheService repositorycache.CacheService,
) (*CachedInstanceStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base instance store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: instance cache service is required")
	}
	return &CachedInstanceStore{base: base, cache: cacheService}, nil
}

// InstanceCacheKey returns the deterministic cache key contract for instance
// reads: go-channels::instance::v1::<customer_id>::<site_slug> with each
// segment URL-path escaped.
func InstanceCacheKey(tenant core.TenantIdentity) (string, error) {
	if err := tenant.Validate(); err != nil {
		return "", err
	}
	customerID, siteSlug := tenantColumns(tenant)
	segments := []string{
		url.PathEscape(customerID),
		url.PathEscape(siteSlug),
	}
	return strings.Join(append([]string{instanceCacheKeyPrefix}, segments...), "::"), nil
}

func (s *CachedInstanceStore) GetByTenant(ctx context.Context, tenant core.TenantIdentity) (core.ChannelInstanceRecord, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.ChannelInstanceRecord{}, false, fmt.Errorf("sqlstore: cached instance store is not configured")
	}
	cacheKey, err := InstanceCacheKey(tenant)
	if err != nil {
		return core.ChannelInstanceRecord{}, false, err
	}

	lookup, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedInstanceLookup, error) {
		record, found, fetchErr := s.base.GetByTenant(ctx, tenant)
		if fetchErr != nil {
			return cachedInstanceLookup{}, fetchErr
		}
		return cachedInstanceLookup{Record: record, Found: found}, nil
	})
	if err != nil {
		return core.ChannelInstanceRecord{}, false, err
	}
	return lookup.Record, lookup.Found, nil
}

func (s *CachedInstanceStore) Upsert(ctx context.Context, in core.UpsertInstanceInput) (core.ChannelInstanceRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.ChannelInstanceRecord{}, fmt.Errorf("sqlstore: cached instance store is not configured")
	}
	record, err := s.base.Upsert(ctx, in)
	if err != nil {
		return core.ChannelInstanceRecord{}, err
	}
	if err := s.invalidate(ctx, in.Tenant); err != nil {
		return core.ChannelInstanceRecord{}, err
	}
	return record, nil
}

func (s *CachedInstanceStore) UpdateStatus(ctx context.Context, tenant core.TenantIdentity, status core.InstanceStatus, reason string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached instance store is not configured")
	}
	if err := s.base.UpdateStatus(ctx, tenant, status, reason); err != nil {
		return err
	}
	return s.invalidate(ctx, tenant)
}

func (s *CachedInstanceStore) ListByStatus(ctx context.Context, status core.InstanceStatus, limit int) ([]core.ChannelInstanceRecord, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached instance store is not configured")
	}
	// List reads bypass the per-tenant cache; callers use them for sweeps
	// where staleness matters more than latency.
	return s.base.ListByStatus(ctx, status, limit)
}

func (s *CachedInstanceStore) invalidate(ctx context.Context, tenant core.TenantIdentity) error {
	cacheKey, err := InstanceCacheKey(tenant)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.InstanceStore = (*CachedInstanceStore)(nil)
