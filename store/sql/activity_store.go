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

// ActivityStore is the SQL-backed provisioning audit trail.
type ActivityStore struct {
	db   *bun.DB
	repo repository.Repository[*channelActivityRecord]
}

func NewActivityStore(db *bun.DB) (*ActivityStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*channelActivityRecord](db, activityHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid activity repository wiring: %w", err)
		}
	}
	return &ActivityStore{db: db, repo: repo}, nil
}

func (s *ActivityStore) Record(ctx context.Context, entry core.ChannelActivityEntry) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: activity store is not configured")
	}
	customerID := strings.TrimSpace(entry.CustomerID)
	siteSlug := strings.ToLower(strings.TrimSpace(entry.SiteSlug))
	if customerID == "" || siteSlug == "" {
		return fmt.Errorf("sqlstore: activity entry requires customer_id and site_slug")
	}

	id := strings.TrimSpace(entry.ID)
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := entry.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	record := &channelActivityRecord{
		ID:         id,
		CustomerID: customerID,
		SiteSlug:   siteSlug,
		Actor:      strings.TrimSpace(entry.Actor),
		Action:     strings.TrimSpace(entry.Action),
		Status:     strings.TrimSpace(string(entry.Status)),
		Metadata:   copyAnyMap(entry.Metadata),
		CreatedAt:  createdAt,
	}
	if record.Actor == "" {
		record.Actor = "system"
	}
	if record.Action == "" {
		record.Action = "channel.event"
	}
	if record.Status == "" {
		record.Status = string(core.ChannelActivityStatusOK)
	}

	_, err := s.repo.Create(ctx, record)
	return err
}

func (s *ActivityStore) List(ctx context.Context, filter core.ChannelActivityFilter) (core.ChannelActivityPage, error) {
	if s == nil || s.repo == nil {
		return core.ChannelActivityPage{}, fmt.Errorf("sqlstore: activity store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(perPage, offset),
	}
	if customerID := strings.TrimSpace(filter.CustomerID); customerID != "" {
		selectors = append(selectors, repository.SelectBy("customer_id", "=", customerID))
	}
	if siteSlug := strings.ToLower(strings.TrimSpace(filter.SiteSlug)); siteSlug != "" {
		selectors = append(selectors, repository.SelectBy("site_slug", "=", siteSlug))
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		selectors = append(selectors, repository.SelectBy("action", "=", action))
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		selectors = append(selectors, repository.SelectBy("status", "=", status))
	}
	if filter.From != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", ">=", filter.From.UTC()))
	}
	if filter.To != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", "<=", filter.To.UTC()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.ChannelActivityPage{}, err
	}
	items := make([]core.ChannelActivityEntry, 0, len(records))
	for _, record := range records {
		items = append(items, record.toDomain())
	}
	return core.ChannelActivityPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

func (s *ActivityStore) Prune(ctx context.Context, policy core.ActivityRetentionPolicy) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: activity store is not configured")
	}
	deleted := 0
	now := time.Now().UTC()

	if policy.TTL > 0 {
		cutoff := now.Add(-policy.TTL)
		res, err := s.db.NewDelete().
			Model((*channelActivityRecord)(nil)).
			Where("created_at < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return deleted, err
		}
		affected, _ := res.RowsAffected()
		deleted += int(affected)
	}

	if policy.RowCap > 0 {
		total, err := s.db.NewSelect().Model((*channelActivityRecord)(nil)).Count(ctx)
		if err != nil {
			return deleted, err
		}
		excess := total - policy.RowCap
		if excess > 0 {
			res, err := s.db.NewRaw(
				"DELETE FROM channel_activity_entries WHERE id IN (SELECT id FROM channel_activity_entries ORDER BY created_at ASC LIMIT ?)",
				excess,
			).Exec(ctx)
			if err != nil {
				return deleted, err
			}
			affected, _ := res.RowsAffected()
			deleted += int(affected)
		}
	}

	return deleted, nil
}
