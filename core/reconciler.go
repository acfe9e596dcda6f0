package core

import "strings"

// Reconcile decides whether a stored instance is reused as-is or a provider
// connect call is made. A connected record with an instance id short-circuits
// the provider entirely; re-provisioning a good session is wasteful and can
// invalidate it on some providers. Otherwise the stored instance id, when
// present, is carried forward so the provider can reconnect the existing
// session instead of minting a new one.
func Reconcile(tenant TenantIdentity, token string, existing *ChannelInstanceRecord) ReconcileDecision {
	if existing == nil {
		return ReconcileDecision{}
	}
	instanceID := strings.TrimSpace(existing.InstanceID)
	if existing.Status == InstanceStatusConnected && instanceID != "" {
		return ReconcileDecision{Reuse: true, InstanceID: instanceID}
	}
	return ReconcileDecision{Reuse: false, InstanceID: instanceID}
}
