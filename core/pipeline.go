package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	ActionProvision  = "channel.provision"
	ActionDisconnect = "channel.disconnect"
	ActionPoll       = "channel.poll"
)

// tenantLockMargin is added to the provider timeout when computing the lock
// TTL so the lock outlives a slow connect call.
const tenantLockMargin = 15 * time.Second

// Run executes one pairing cycle for a tenant: resolve the token, reconcile
// against the stored record, call the provider unless the record is reusable,
// and persist the outcome. The store write happens only after a successful
// extraction so a failed run never leaves a stale instance id behind. Every
// failure is folded into the returned PairingResult.
func (s *Service) Run(ctx context.Context, req RunRequest) PairingResult {
	if s == nil {
		return errorResult(req.Tenant, fmt.Errorf("core: service is nil"))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := s.clock()
	tenant := req.Tenant.normalized()

	result := s.run(ctx, tenant, req)

	var runErr error
	if result.Status == PairingStatusError {
		runErr = errors.New(result.Error)
	}
	s.observeOperation(ctx, startedAt, "pairing_run", runErr, map[string]any{
		"customer_id": tenant.CustomerID,
		"site_slug":   tenant.SiteSlug,
		"instance_id": result.InstanceID,
	})
	s.recordActivity(ctx, tenant, ActionProvision, runErr, map[string]any{
		"pairing_status": string(result.Status),
		"instance_id":    result.InstanceID,
	})
	return result
}

func (s *Service) run(ctx context.Context, tenant TenantIdentity, req RunRequest) PairingResult {
	if err := tenant.Validate(); err != nil {
		return errorResult(tenant, s.mapError(err))
	}
	if s.connector == nil {
		return errorResult(tenant, s.mapError(fmt.Errorf("core: provider connector is required")))
	}

	unlock, err := s.lockTenant(ctx, tenant)
	if err != nil {
		return errorResult(tenant, s.mapError(err))
	}
	defer unlock()

	existing, err := s.loadExisting(ctx, tenant, req.Existing)
	if err != nil {
		return errorResult(tenant, s.mapError(err))
	}

	storedToken := ""
	if existing != nil {
		storedToken = existing.Token
	}
	if strings.TrimSpace(storedToken) == "" && s.tokenStore != nil {
		storedToken, err = s.tokenStore.GetStoredToken(ctx, tenant)
		if err != nil {
			return errorResult(tenant, s.mapError(err))
		}
	}

	token, err := ResolveToken(tenant, req.RequestToken, storedToken, req.FallbackToken)
	if err != nil {
		return errorResult(tenant, s.mapError(err))
	}

	decision := Reconcile(tenant, token, existing)
	if decision.Reuse {
		return PairingResult{
			CustomerID:   tenant.CustomerID,
			SiteSlug:     tenant.SiteSlug,
			InstanceName: tenant.InstanceName,
			InstanceID:   decision.InstanceID,
			Token:        token,
			QRCode:       existing.QRCode,
			Status:       PairingStatusConnected,
		}
	}

	connectCtx := ctx
	cancel := func() {}
	if timeout := s.config.Provider.ConnectTimeout; timeout > 0 {
		connectCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	connectStarted := s.clock()
	connected, err := s.connector.Connect(connectCtx, ConnectInstanceRequest{
		Tenant:     tenant,
		Token:      token,
		InstanceID: decision.InstanceID,
		Metadata:   req.Metadata,
	})
	cancel()
	s.recordHistogram(ctx, "channels.provider.connect.duration_ms",
		float64(time.Since(connectStarted).Milliseconds()),
		map[string]string{"provider_id": s.connector.ID()},
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !isRichError(err) {
			err = NewProviderTimeoutError(err)
		}
		return errorResult(tenant, s.mapError(err))
	}

	instanceID := strings.TrimSpace(connected.InstanceID)
	if instanceID == "" {
		instanceID = decision.InstanceID
	}
	instanceToken := strings.TrimSpace(connected.Token)
	if instanceToken == "" {
		instanceToken = token
	}
	status := connected.Status
	if status != InstanceStatusConnected {
		status = InstanceStatusConnecting
	}

	record := ChannelInstanceRecord{
		ID:         uuid.NewString(),
		CustomerID: tenant.CustomerID,
		SiteSlug:   tenant.SiteSlug,
		InstanceID: instanceID,
		Token:      instanceToken,
		Status:     status,
		QRCode:     connected.QRCode,
	}
	if s.instanceStore != nil {
		record, err = s.instanceStore.Upsert(ctx, UpsertInstanceInput{
			Tenant:     tenant,
			InstanceID: instanceID,
			Token:      instanceToken,
			Status:     status,
			QRCode:     connected.QRCode,
		})
		if err != nil {
			return errorResult(tenant, s.mapError(err))
		}
	}

	pairingStatus := PairingStatusConnecting
	if record.Status == InstanceStatusConnected {
		pairingStatus = PairingStatusConnected
	}
	return PairingResult{
		CustomerID:   tenant.CustomerID,
		SiteSlug:     tenant.SiteSlug,
		InstanceName: tenant.InstanceName,
		InstanceID:   record.InstanceID,
		Token:        record.Token,
		QRCode:       record.QRCode,
		Status:       pairingStatus,
	}
}

// Disconnect marks the stored record failed with a reason. Rows are never
// deleted by this module.
func (s *Service) Disconnect(ctx context.Context, tenant TenantIdentity, reason string) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	startedAt := s.clock()
	tenant = tenant.normalized()
	err := s.disconnect(ctx, tenant, reason)
	s.observeOperation(ctx, startedAt, "disconnect", err, map[string]any{
		"customer_id": tenant.CustomerID,
		"site_slug":   tenant.SiteSlug,
	})
	s.recordActivity(ctx, tenant, ActionDisconnect, err, map[string]any{"reason": strings.TrimSpace(reason)})
	return err
}

func (s *Service) disconnect(ctx context.Context, tenant TenantIdentity, reason string) error {
	if err := tenant.Validate(); err != nil {
		return s.mapError(err)
	}
	if s.instanceStore == nil {
		return s.mapError(fmt.Errorf("core: instance store is required"))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "disconnected by operator"
	}
	if err := s.instanceStore.UpdateStatus(ctx, tenant, InstanceStatusFailed, reason); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *Service) GetInstance(ctx context.Context, tenant TenantIdentity) (ChannelInstanceRecord, error) {
	if s == nil {
		return ChannelInstanceRecord{}, fmt.Errorf("core: service is nil")
	}
	tenant = tenant.normalized()
	if err := tenant.Validate(); err != nil {
		return ChannelInstanceRecord{}, s.mapError(err)
	}
	if s.instanceStore == nil {
		return ChannelInstanceRecord{}, s.mapError(fmt.Errorf("core: instance store is required"))
	}
	record, found, err := s.instanceStore.GetByTenant(ctx, tenant)
	if err != nil {
		return ChannelInstanceRecord{}, s.mapError(err)
	}
	if !found {
		return ChannelInstanceRecord{}, s.mapError(fmt.Errorf("%w: %s", ErrInstanceNotFound, tenant.Key()))
	}
	return record, nil
}

func (s *Service) ListInstances(ctx context.Context, status InstanceStatus, limit int) ([]ChannelInstanceRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	if s.instanceStore == nil {
		return nil, s.mapError(fmt.Errorf("core: instance store is required"))
	}
	records, err := s.instanceStore.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, s.mapError(err)
	}
	return records, nil
}

func (s *Service) lockTenant(ctx context.Context, tenant TenantIdentity) (func(), error) {
	if s.tenantLocker == nil {
		return func() {}, nil
	}
	ttl := s.config.Provider.ConnectTimeout + tenantLockMargin
	handle, err := s.tenantLocker.Acquire(ctx, tenant.Key(), ttl)
	if err != nil {
		return nil, err
	}
	return func() { _ = handle.Unlock(ctx) }, nil
}

func (s *Service) loadExisting(
	ctx context.Context,
	tenant TenantIdentity,
	supplied *ChannelInstanceRecord,
) (*ChannelInstanceRecord, error) {
	if supplied != nil {
		copied := *supplied
		return &copied, nil
	}
	if s.instanceStore == nil {
		return nil, nil
	}
	record, found, err := s.instanceStore.GetByTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

func (s *Service) recordActivity(
	ctx context.Context,
	tenant TenantIdentity,
	action string,
	runErr error,
	metadata map[string]any,
) {
	if s == nil || s.activitySink == nil {
		return
	}
	status := ChannelActivityStatusOK
	if runErr != nil {
		status = ChannelActivityStatusError
		metadata = cloneFields(metadata)
		metadata["error"] = runErr.Error()
	}
	_ = s.activitySink.Record(ctx, ChannelActivityEntry{
		ID:         uuid.NewString(),
		CustomerID: tenant.CustomerID,
		SiteSlug:   tenant.SiteSlug,
		Actor:      "system",
		Action:     action,
		Status:     status,
		Metadata:   metadata,
		CreatedAt:  s.clock(),
	})
}

func errorResult(tenant TenantIdentity, err error) PairingResult {
	message := "core: pairing run failed"
	if err != nil {
		message = err.Error()
	}
	return PairingResult{
		CustomerID:   strings.TrimSpace(tenant.CustomerID),
		SiteSlug:     strings.TrimSpace(tenant.SiteSlug),
		InstanceName: strings.TrimSpace(tenant.InstanceName),
		Status:       PairingStatusError,
		Error:        message,
	}
}

func isRichError(err error) bool {
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr)
}
