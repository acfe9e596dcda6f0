package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidTenantIdentity          = errors.New("core: invalid tenant identity")
	ErrInvalidInstanceStatusTransition = errors.New("core: invalid instance status transition")
	ErrInstanceNotFound               = errors.New("core: channel instance not found")
)

// TenantIdentity scopes every lookup and write performed by this module.
// CustomerID and SiteSlug together form the storage key; InstanceName is the
// display name handed to the provider when a new instance is created.
type TenantIdentity struct {
	CustomerID   string `json:"customer_id"`
	SiteSlug     string `json:"site_slug"`
	InstanceName string `json:"instance_name"`
}

func (t TenantIdentity) Validate() error {
	if strings.TrimSpace(t.CustomerID) == "" {
		return fmt.Errorf("%w: empty customer id", ErrInvalidTenantIdentity)
	}
	if strings.TrimSpace(t.SiteSlug) == "" {
		return fmt.Errorf("%w: empty site slug", ErrInvalidTenantIdentity)
	}
	return nil
}

// Key returns the `{customer}/{site}` storage key for the tenant.
func (t TenantIdentity) Key() string {
	return strings.TrimSpace(t.CustomerID) + "/" + strings.TrimSpace(t.SiteSlug)
}

func (t TenantIdentity) normalized() TenantIdentity {
	return TenantIdentity{
		CustomerID:   strings.TrimSpace(t.CustomerID),
		SiteSlug:     strings.TrimSpace(strings.ToLower(t.SiteSlug)),
		InstanceName: strings.TrimSpace(t.InstanceName),
	}
}

type InstanceStatus string

const (
	InstanceStatusUnknown    InstanceStatus = "unknown"
	InstanceStatusConnecting InstanceStatus = "connecting"
	InstanceStatusConnected  InstanceStatus = "connected"
	InstanceStatusFailed     InstanceStatus = "failed"
)

// ChannelInstanceRecord is the persisted provider-side session state for one
// tenant. Records are created on first successful provisioning and updated on
// every reconciliation; they are never deleted by this module.
type ChannelInstanceRecord struct {
	ID         string
	CustomerID string
	SiteSlug   string
	InstanceID string
	Token      string
	Status     InstanceStatus
	QRCode     string
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Reusable reports whether the stored instance must be reused instead of
// requesting a new one from the provider.
func (r ChannelInstanceRecord) Reusable() bool {
	return r.Status == InstanceStatusConnected && strings.TrimSpace(r.InstanceID) != ""
}

func (r *ChannelInstanceRecord) TransitionTo(status InstanceStatus, reason string, now time.Time) error {
	if r == nil {
		return nil
	}
	if r.Status == status {
		r.UpdatedAt = now
		if strings.TrimSpace(reason) != "" {
			r.LastError = strings.TrimSpace(reason)
		}
		return nil
	}
	if !instanceTransitionAllowed(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidInstanceStatusTransition, r.Status, status)
	}
	r.Status = status
	r.UpdatedAt = now
	if strings.TrimSpace(reason) != "" {
		r.LastError = strings.TrimSpace(reason)
	}
	if status == InstanceStatusConnected {
		r.LastError = ""
	}
	return nil
}

func instanceTransitionAllowed(current, next InstanceStatus) bool {
	allowed := map[InstanceStatus]map[InstanceStatus]struct{}{
		InstanceStatusUnknown: {
			InstanceStatusConnecting: {},
			InstanceStatusConnected:  {},
			InstanceStatusFailed:     {},
		},
		InstanceStatusConnecting: {
			InstanceStatusConnected: {},
			InstanceStatusFailed:    {},
			InstanceStatusUnknown:   {},
		},
		InstanceStatusConnected: {
			InstanceStatusConnecting: {},
			InstanceStatusFailed:     {},
		},
		InstanceStatusFailed: {
			InstanceStatusConnecting: {},
			InstanceStatusUnknown:    {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}

type PairingStatus string

const (
	PairingStatusConnecting PairingStatus = "connecting"
	PairingStatusConnected  PairingStatus = "connected"
	PairingStatusError      PairingStatus = "error"
)

// PairingResult is the terminal output of one pipeline run. The JSON field
// names are a compatibility contract with consuming dashboards and must stay
// stable.
type PairingResult struct {
	CustomerID   string        `json:"customer_id"`
	SiteSlug     string        `json:"site_slug"`
	InstanceName string        `json:"instance_name"`
	InstanceID   string        `json:"provider_instance_id"`
	Token        string        `json:"provider_token"`
	QRCode       string        `json:"provider_qr_code"`
	Status       PairingStatus `json:"provider_status"`
	Error        string        `json:"error,omitempty"`
}

type ChannelActivityStatus string

const (
	ChannelActivityStatusOK    ChannelActivityStatus = "ok"
	ChannelActivityStatusError ChannelActivityStatus = "error"
)

// ChannelActivityEntry is one row in the provisioning audit trail.
type ChannelActivityEntry struct {
	ID         string
	CustomerID string
	SiteSlug   string
	Actor      string
	Action     string
	Status     ChannelActivityStatus
	Metadata   map[string]any
	CreatedAt  time.Time
}
