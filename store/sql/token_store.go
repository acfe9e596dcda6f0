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

// TokenStore reads and writes per-tenant channel tokens. A missing row reads
// back as an empty token so the credential resolver can fall through to its
// next source.
type TokenStore struct {
	db   *bun.DB
	repo repository.Repository[*channelTokenRecord]
}

func NewTokenStore(db *bun.DB) (*TokenStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*channelTokenRecord](db, tokenHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid token repository wiring: %w", err)
		}
	}
	return &TokenStore{db: db, repo: repo}, nil
}

func (s *TokenStore) GetStoredToken(ctx context.Context, tenant core.TenantIdentity) (string, error) {
	if s == nil || s.repo == nil {
		return "", fmt.Errorf("sqlstore: token store is not configured")
	}
	if err := tenant.Validate(); err != nil {
		return "", err
	}
	record, err := s.findByTenant(ctx, tenant)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", nil
	}
	return strings.TrimSpace(record.Token), nil
}

func (s *TokenStore) SaveToken(ctx context.Context, tenant core.TenantIdentity, token string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	if err := tenant.Validate(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("sqlstore: token is required")
	}

	now := time.Now().UTC()
	existing, err := s.findByTenant(ctx, tenant)
	if err != nil {
		return err
	}
	if existing == nil {
		customerID, siteSlug := tenantColumns(tenant)
		_, err = s.repo.Create(ctx, &channelTokenRecord{
			ID:         uuid.NewString(),
			CustomerID: customerID,
			SiteSlug:   siteSlug,
			Token:      token,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		return err
	}

	existing.Token = token
	existing.UpdatedAt = now
	_, err = s.repo.Update(ctx, existing, repository.UpdateByID(existing.ID))
	return err
}

func (s *TokenStore) findByTenant(ctx context.Context, tenant core.TenantIdentity) (*channelTokenRecord, error) {
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
