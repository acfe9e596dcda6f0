package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-channels/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// InstanceStore persists one channel instance row per `{customer_id,
// site_slug}` pair. Rows are upserted on every reconciliation and never
// deleted.
type InstanceStore struct {
	db   *bun.DB
	repo repository.Repository[*channelInstanceRecord]
}

func NewInstanceStore(db *bun.DB) (*InstanceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*channelInstanceRecord](db, instanceHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid instance repository wiring: %w", err)
		}
	}
	return &InstanceStore{db: db, repo: repo}, nil
}

func (s *InstanceStore) GetByTenant(ctx context.Context, tenant core.TenantIdentity) (core.ChannelInstanceRecord, bool, error) {
	if s == nil || s.repo == nil {
		return core.ChannelInstanceRecord{}, false, fmt.Errorf("sqlstore: instance store is not configured")
	}
	if err := tenant.Validate(); err != nil {
		return core.ChannelInstanceRecord{}, false, err
	}
	record, err := s.findByTenant(ctx, tenant)
	if err != nil {
		return core.ChannelInstanceRecord{}, false, err
	}
	if record == nil {
		return core.ChannelInstanceRecord{}, false, nil
	}
	return record.toDomain(), true, nil
}

func (s *InstanceStore) Upsert(ctx context.Context, in core.UpsertInstanceInput) (core.ChannelInstanceRecord, error) {
	if s == nil || s.repo == nil {
		return core.ChannelInstanceRecord{}, fmt.Errorf("sqlstore: instance store is not configured")
	}
	if err := in.Tenant.Validate(); err != nil {
		return core.ChannelInstanceRecord{}, err
	}
	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = core.InstanceStatusConnecting
	}

	now := time.Now().UTC()
	existing, err := s.findByTenant(ctx, in.Tenant)
	if err != nil {
		return core.ChannelInstanceRecord{}, err
	}

	if existing == nil {
		customerID, siteSlug := tenantColumns(in.Tenant)
		record := &channelInstanceRecord{
			ID:           uuid.NewString(),
			CustomerID:   customerID,
			SiteSlug:     siteSlug,
			InstanceName: strings.TrimSpace(in.Tenant.InstanceName),
			InstanceID:   strings.TrimSpace(in.InstanceID),
			Token:        strings.TrimSpace(in.Token),
			Status:       string(status),
			QRCode:       in.QRCode,
			LastError:    strings.TrimSpace(in.LastError),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		created, createErr := s.repo.Create(ctx, record)
		if createErr != nil {
			return core.ChannelInstanceRecord{}, createErr
		}
		return created.toDomain(), nil
	}

	if name := strings.TrimSpace(in.Tenant.InstanceName); name != "" {
		existing.InstanceName = name
	}
	if instanceID := strings.TrimSpace(in.InstanceID); instanceID != "" {
		existing.InstanceID = instanceID
	}
	if token := strings.TrimSpace(in.Token); token != "" {
		existing.Token = token
	}
	existing.Status = string(status)
	existing.QRCode = in.QRCode
	existing.LastError = strings.TrimSpace(in.LastError)
	existing.UpdatedAt = now

	updated, err := s.repo.Update(ctx, existing, repository.UpdateByID(existing.ID))
	if err != nil {
		return core.ChannelInstanceRecord{}, err
	}
	return updated.toDomain(), nil
}

func (s *InstanceStore) UpdateStatus(ctx context.Context, tenant core.TenantIdentity, status core.InstanceStatus, reason string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: instance store is not configured")
	}
	if err := tenant.Validate(); err != nil {
		return err
	}
	record, err := s.findByTenant(ctx, tenant)
	if err != nil {
		return err
	}
	if record == nil {
		return core.ErrInstanceNotFound
	}
	record.Status = string(status)
	record.LastError = strings.TrimSpace(reason)
	record.UpdatedAt = time.Now().UTC()

	_, err = s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	return err
}

func (s *InstanceStore) ListByStatus(ctx context.Context, status core.InstanceStatus, limit int) ([]core.ChannelInstanceRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: instance store is not configured")
	}
	if limit <= 0 {
		limit = 100
	}
	selectors := []repository.SelectCriteria{
		repository.OrderBy("updated_at ASC"),
		repository.SelectPaginate(limit, 0),
	}
	if trimmed := strings.TrimSpace(string(status)); trimmed != "" {
		selectors = append(selectors, repository.SelectBy("status", "=", trimmed))
	}
	records, _, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return nil, err
	}
	out := make([]core.ChannelInstanceRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *InstanceStore) findByTenant(ctx context.Context, tenant core.TenantIdentity) (*channelInstanceRecord, error) {
	customerID, siteSlug := tenantColumns(tenant)
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("customer_id", "=", customerID),
		repository.SelectBy("site_slug", "=", siteSlug),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}
