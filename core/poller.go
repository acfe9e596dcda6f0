package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const defaultPollMaxAttempts = 20

type PollRunOptions struct {
	MaxAttempts int
	LockTTL     time.Duration
}

type PollRunResult struct {
	Attempts  int
	Connected bool
	Status    InstanceStatus
}

// WaitForPairing polls the provider until the tenant's instance reports
// connected, the attempt budget is exhausted, or an unrecoverable error is
// seen. A run that ends "connecting" is terminal per run, not per tenant;
// this poller is what eventually flips the stored record to connected once
// the end user scans the QR code.
func (s *Service) WaitForPairing(ctx context.Context, tenant TenantIdentity, opts PollRunOptions) (PollRunResult, error) {
	if s == nil {
		return PollRunResult{}, fmt.Errorf("core: service is nil")
	}
	tenant = tenant.normalized()
	if err := tenant.Validate(); err != nil {
		return PollRunResult{}, s.mapError(err)
	}
	if s.connector == nil {
		return PollRunResult{}, s.mapError(fmt.Errorf("core: provider connector is required"))
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = s.config.Poller.MaxAttempts
	}
	if maxAttempts < 1 {
		maxAttempts = defaultPollMaxAttempts
	}
	lockTTL := opts.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultTenantLockTTL
	}

	// Same lock key as Run: a poll and a provision for one tenant must never
	// interleave their store writes.
	unlock := func() {}
	if s.tenantLocker != nil {
		handle, lockErr := s.tenantLocker.Acquire(ctx, tenant.Key(), lockTTL)
		if lockErr != nil {
			return PollRunResult{}, s.mapError(lockErr)
		}
		unlock = func() {
			_ = handle.Unlock(ctx)
		}
	}
	defer unlock()

	record, err := s.GetInstance(ctx, tenant)
	if err != nil {
		return PollRunResult{}, err
	}
	if record.Reusable() {
		return PollRunResult{Attempts: 0, Connected: true, Status: InstanceStatusConnected}, nil
	}
	if strings.TrimSpace(record.InstanceID) == "" {
		return PollRunResult{}, s.mapError(fmt.Errorf("core: tenant %s has no provider instance to poll", tenant.Key()))
	}

	var lastErr error
	lastStatus := record.Status
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, pollErr := s.pollOnce(ctx, tenant, record)
		if pollErr == nil {
			lastStatus = status
			if status == InstanceStatusConnected {
				return PollRunResult{Attempts: attempt, Connected: true, Status: status}, nil
			}
		} else {
			lastErr = pollErr
			if isUnrecoverablePollError(pollErr) {
				_ = s.markFailed(ctx, tenant, pollErr)
				return PollRunResult{Attempts: attempt, Status: InstanceStatusFailed}, s.mapError(pollErr)
			}
		}
		if attempt == maxAttempts {
			break
		}

		delay := defaultPollInitialBackoff
		if s.backoffScheduler != nil {
			delay = s.backoffScheduler.NextDelay(attempt)
		}
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			return PollRunResult{Attempts: attempt, Status: lastStatus}, s.mapError(waitErr)
		}
	}

	if lastErr != nil {
		return PollRunResult{Attempts: maxAttempts, Status: lastStatus}, s.mapError(lastErr)
	}
	return PollRunResult{Attempts: maxAttempts, Status: lastStatus}, nil
}

func (s *Service) pollOnce(ctx context.Context, tenant TenantIdentity, record ChannelInstanceRecord) (InstanceStatus, error) {
	startedAt := s.clock()
	result, err := s.connector.InstanceStatus(ctx, InstanceStatusRequest{
		Tenant:     tenant,
		Token:      record.Token,
		InstanceID: record.InstanceID,
	})
	s.observeOperation(ctx, startedAt, "pairing_poll", err, map[string]any{
		"customer_id": tenant.CustomerID,
		"site_slug":   tenant.SiteSlug,
		"instance_id": record.InstanceID,
	})
	if err != nil {
		return record.Status, err
	}

	status := result.Status
	if status == "" {
		status = InstanceStatusConnecting
	}
	if s.instanceStore != nil {
		qrCode := result.QRCode
		if status == InstanceStatusConnected {
			// A paired session no longer needs its one-time artifact.
			qrCode = ""
		} else if strings.TrimSpace(qrCode) == "" {
			qrCode = record.QRCode
		}
		if _, err := s.instanceStore.Upsert(ctx, UpsertInstanceInput{
			Tenant:     tenant,
			InstanceID: record.InstanceID,
			Token:      record.Token,
			Status:     status,
			QRCode:     qrCode,
		}); err != nil {
			return status, err
		}
	}
	return status, nil
}

func (s *Service) markFailed(ctx context.Context, tenant TenantIdentity, source error) error {
	if s == nil || s.instanceStore == nil {
		return nil
	}
	reason := strings.TrimSpace(fmt.Sprint(source))
	if reason == "" {
		reason = "pairing poll failed"
	}
	return s.instanceStore.UpdateStatus(ctx, tenant, InstanceStatusFailed, reason)
}

func isUnrecoverablePollError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryValidation, goerrors.CategoryNotFound:
			return true
		}
		if richErr.Code == 401 || richErr.Code == 403 || richErr.Code == 404 {
			return true
		}
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "invalid token") ||
		strings.Contains(msg, "instance not found")
}
