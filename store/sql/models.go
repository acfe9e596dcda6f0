package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type channelInstanceRecord struct {
	bun.BaseModel `bun:"table:channel_instances,alias:ci"`

	ID           string    `bun:"id,pk"`
	CustomerID   string    `bun:"customer_id,notnull"`
	SiteSlug     string    `bun:"site_slug,notnull"`
	InstanceName string    `bun:"instance_name"`
	InstanceID   string    `bun:"instance_id"`
	Token        string    `bun:"token"`
	Status       string    `bun:"status,notnull"`
	QRCode       string    `bun:"qr_code"`
	LastError    string    `bun:"last_error"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type channelTokenRecord struct {
	bun.BaseModel `bun:"table:channel_tokens,alias:ct"`

	ID         string    `bun:"id,pk"`
	CustomerID string    `bun:"customer_id,notnull"`
	SiteSlug   string    `bun:"site_slug,notnull"`
	Token      string    `bun:"token,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type channelActivityRecord struct {
	bun.BaseModel `bun:"table:channel_activity_entries,alias:cae"`

	ID         string         `bun:"id,pk"`
	CustomerID string         `bun:"customer_id,notnull"`
	SiteSlug   string         `bun:"site_slug,notnull"`
	Actor      string         `bun:"actor,notnull"`
	Action     string         `bun:"action,notnull"`
	Status     string         `bun:"status,notnull"`
	Metadata   map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
