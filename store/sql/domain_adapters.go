package sqlstore

import (
	"strings"

	"github.com/goliatone/go-channels/core"
)

func (r *channelInstanceRecord) toDomain() core.ChannelInstanceRecord {
	if r == nil {
		return core.ChannelInstanceRecord{}
	}
	return core.ChannelInstanceRecord{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		SiteSlug:   r.SiteSlug,
		InstanceID: r.InstanceID,
		Token:      r.Token,
		Status:     core.InstanceStatus(r.Status),
		QRCode:     r.QRCode,
		LastError:  r.LastError,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (r *channelActivityRecord) toDomain() core.ChannelActivityEntry {
	if r == nil {
		return core.ChannelActivityEntry{}
	}
	return core.ChannelActivityEntry{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		SiteSlug:   r.SiteSlug,
		Actor:      r.Actor,
		Action:     r.Action,
		Status:     core.ChannelActivityStatus(r.Status),
		Metadata:   copyAnyMap(r.Metadata),
		CreatedAt:  r.CreatedAt,
	}
}

func copyAnyMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

func tenantColumns(tenant core.TenantIdentity) (customerID string, siteSlug string) {
	return strings.TrimSpace(tenant.CustomerID), strings.ToLower(strings.TrimSpace(tenant.SiteSlug))
}
