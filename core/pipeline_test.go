package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubConnector struct {
	id           string
	connectFn    func(ctx context.Context, req ConnectInstanceRequest) (ConnectInstanceResult, error)
	statusFn     func(ctx context.Context, req InstanceStatusRequest) (InstanceStatusResult, error)
	connectCalls int
	statusCalls  int
	lastConnect  ConnectInstanceRequest
}

func (s *stubConnector) ID() string {
	if s.id == "" {
		return "uazapi"
	}
	return s.id
}

func (s *stubConnector) Connect(ctx context.Context, req ConnectInstanceRequest) (ConnectInstanceResult, error) {
	s.connectCalls++
	s.lastConnect = req
	if s.connectFn == nil {
		return ConnectInstanceResult{}, nil
	}
	return s.connectFn(ctx, req)
}

func (s *stubConnector) InstanceStatus(ctx context.Context, req InstanceStatusRequest) (InstanceStatusResult, error) {
	s.statusCalls++
	if s.statusFn == nil {
		return InstanceStatusResult{}, nil
	}
	return s.statusFn(ctx, req)
}

type stubInstanceStore struct {
	getFn          func(ctx context.Context, tenant TenantIdentity) (ChannelInstanceRecord, bool, error)
	upsertFn       func(ctx context.Context, in UpsertInstanceInput) (ChannelInstanceRecord, error)
	updateStatusFn func(ctx context.Context, tenant TenantIdentity, status InstanceStatus, reason string) error
	listFn         func(ctx context.Context, status InstanceStatus, limit int) ([]ChannelInstanceRecord, error)
	upsertCalls    int
	lastUpsert     UpsertInstanceInput
}

func (s *stubInstanceStore) GetByTenant(ctx context.Context, tenant TenantIdentity) (ChannelInstanceRecord, bool, error) {
	if s.getFn == nil {
		return ChannelInstanceRecord{}, false, nil
	}
	return s.getFn(ctx, tenant)
}

func (s *stubInstanceStore) Upsert(ctx context.Context, in UpsertInstanceInput) (ChannelInstanceRecord, error) {
	s.upsertCalls++
	s.lastUpsert = in
	if s.upsertFn != nil {
		return s.upsertFn(ctx, in)
	}
	return ChannelInstanceRecord{
		ID:         "rec_1",
		CustomerID: in.Tenant.CustomerID,
		SiteSlug:   in.Tenant.SiteSlug,
		InstanceID: in.InstanceID,
		Token:      in.Token,
		Status:     in.Status,
		QRCode:     in.QRCode,
	}, nil
}

func (s *stubInstanceStore) UpdateStatus(ctx context.Context, tenant TenantIdentity, status InstanceStatus, reason string) error {
	if s.updateStatusFn == nil {
		return nil
	}
	return s.updateStatusFn(ctx, tenant, status, reason)
}

func (s *stubInstanceStore) ListByStatus(ctx context.Context, status InstanceStatus, limit int) ([]ChannelInstanceRecord, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, status, limit)
}

type stubTokenStore struct {
	token string
	err   error
}

func (s stubTokenStore) GetStoredToken(context.Context, TenantIdentity) (string, error) {
	return s.token, s.err
}

type recordingActivitySink struct {
	entries []ChannelActivityEntry
}

func (s *recordingActivitySink) Record(_ context.Context, entry ChannelActivityEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingActivitySink) List(context.Context, ChannelActivityFilter) (ChannelActivityPage, error) {
	return ChannelActivityPage{}, nil
}

func newTestService(t *testing.T, options ...Option) *Service {
	t.Helper()
	svc, err := NewService(Config{}, options...)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func testTenant() TenantIdentity {
	return TenantIdentity{CustomerID: "cust_1", SiteSlug: "main", InstanceName: "Main"}
}

func TestRunReusesConnectedInstanceWithoutProviderCall(t *testing.T) {
	connector := &stubConnector{}
	store := &stubInstanceStore{
		getFn: func(_ context.Context, _ TenantIdentity) (ChannelInstanceRecord, bool, error) {
			return ChannelInstanceRecord{
				CustomerID: "cust_1",
				SiteSlug:   "main",
				InstanceID: "inst_1",
				Token:      "tok_stored",
				Status:     InstanceStatusConnected,
				QRCode:     "stale-qr",
			}, true, nil
		},
	}
	sink := &recordingActivitySink{}
	svc := newTestService(t,
		WithProviderConnector(connector),
		WithInstanceStore(store),
		WithActivitySink(sink),
	)

	result := svc.Run(context.Background(), RunRequest{Tenant: testTenant()})
	if result.Status != PairingStatusConnected {
		t.Fatalf("expected connected result, got %+v", result)
	}
	if result.InstanceID != "inst_1" || result.Token != "tok_stored" {
		t.Fatalf("expected stored identity reused, got %+v", result)
	}
	if connector.connectCalls != 0 {
		t.Fatalf("expected no provider call for reusable record, got %d", connector.connectCalls)
	}
	if store.upsertCalls != 0 {
		t.Fatalf("expected no store write for reusable record, got %d", store.upsertCalls)
	}
	if len(sink.entries) != 1 || sink.entries[0].Action != ActionProvision {
		t.Fatalf("expected one provision activity entry, got %+v", sink.entries)
	}
	if sink.entries[0].Status != ChannelActivityStatusOK {
		t.Fatalf("expected ok activity status, got %q", sink.entries[0].Status)
	}
}

func TestRunConnectsAndPersistsNewInstance(t *testing.T) {
	connector := &stubConnector{
		connectFn: func(_ context.Context, req ConnectInstanceRequest) (ConnectInstanceResult, error) {
			return ConnectInstanceResult{
				InstanceID: "inst_new",
				Status:     InstanceStatusConnecting,
				QRCode:     "data:image/png;base64,QRDATA",
			}, nil
		},
	}
	store := &stubInstanceStore{}
	svc := newTestService(t,
		WithProviderConnector(connector),
		WithInstanceStore(store),
		WithTokenStore(stubTokenStore{token: "tok_stored"}),
	)

	result := svc.Run(context.Background(), RunRequest{
		Tenant:       testTenant(),
		RequestToken: "tok_request",
	})
	if result.Status != PairingStatusConnecting {
		t.Fatalf("expected connecting result, got %+v", result)
	}
	if connector.lastConnect.Token != "tok_request" {
		t.Fatalf("expected request token precedence, provider got %q", connector.lastConnect.Token)
	}
	if store.upsertCalls != 1 {
		t.Fatalf("expected one store write, got %d", store.upsertCalls)
	}
	if store.lastUpsert.InstanceID != "inst_new" || store.lastUpsert.QRCode == "" {
		t.Fatalf("unexpected upsert input %+v", store.lastUpsert)
	}
	if result.QRCode != "data:image/png;base64,QRDATA" {
		t.Fatalf("expected qr code surfaced, got %q", result.QRCode)
	}
}

func TestRunFailsWithoutAnyToken(t *testing.T) {
	connector := &stubConnector{}
	svc := newTestService(t,
		WithProviderConnector(connector),
		WithInstanceStore(&stubInstanceStore{}),
	)

	result := svc.Run(context.Background(), RunRequest{Tenant: testTenant()})
	if result.Status != PairingStatusError {
		t.Fatalf("expected error result, got %+v", result)
	}
	if !strings.Contains(result.Error, "no channel token") {
		t.Fatalf("unexpected error message %q", result.Error)
	}
	if connector.connectCalls != 0 {
		t.Fatalf("expected no provider call without a token")
	}
}

func TestRunMapsProviderTimeout(t *testing.T) {
	connector := &stubConnector{
		connectFn: func(ctx context.Context, _ ConnectInstanceRequest) (ConnectInstanceResult, error) {
			return ConnectInstanceResult{}, context.DeadlineExceeded
		},
	}
	store := &stubInstanceStore{}
	svc := newTestService(t,
		WithProviderConnector(connector),
		WithInstanceStore(store),
	)

	result := svc.Run(context.Background(), RunRequest{
		Tenant:       testTenant(),
		RequestToken: "tok_request",
	})
	if result.Status != PairingStatusError {
		t.Fatalf("expected error result, got %+v", result)
	}
	if !strings.Contains(result.Error, "timed out") {
		t.Fatalf("expected timeout message, got %q", result.Error)
	}
	if store.upsertCalls != 0 {
		t.Fatalf("expected no store write after provider failure, got %d", store.upsertCalls)
	}
}

func TestRunRecordsFailureActivity(t *testing.T) {
	connector := &stubConnector{
		connectFn: func(context.Context, ConnectInstanceRequest) (ConnectInstanceResult, error) {
			return ConnectInstanceResult{}, errors.New("provider exploded")
		},
	}
	sink := &recordingActivitySink{}
	svc := newTestService(t,
		WithProviderConnector(connector),
		WithInstanceStore(&stubInstanceStore{}),
		WithActivitySink(sink),
	)

	result := svc.Run(context.Background(), RunRequest{
		Tenant:       testTenant(),
		RequestToken: "tok_request",
	})
	if result.Status != PairingStatusError {
		t.Fatalf("expected error result, got %+v", result)
	}
	if len(sink.entries) != 1 {
		t.Fatalf("expected one activity entry, got %d", len(sink.entries))
	}
	entry := sink.entries[0]
	if entry.Status != ChannelActivityStatusError {
		t.Fatalf("expected error activity status, got %q", entry.Status)
	}
	if entry.Metadata["error"] == nil {
		t.Fatalf("expected error metadata, got %#v", entry.Metadata)
	}
}

func TestRunRejectsConcurrentTenant(t *testing.T) {
	locker := NewMemoryTenantLocker()
	if _, err := locker.Acquire(context.Background(), "cust_1/main", time.Minute); err != nil {
		t.Fatalf("pre-acquire lock: %v", err)
	}
	connector := &stubConnector{}
	svc := newTestService(t,
		WithProviderConnector(connector),
		WithInstanceStore(&stubInstanceStore{}),
		WithTenantLocker(locker),
	)

	result := svc.Run(context.Background(), RunRequest{
		Tenant:       testTenant(),
		RequestToken: "tok_request",
	})
	if result.Status != PairingStatusError {
		t.Fatalf("expected error result while tenant is locked, got %+v", result)
	}
	if !strings.Contains(result.Error, "lock already held") {
		t.Fatalf("unexpected error message %q", result.Error)
	}
	if connector.connectCalls != 0 {
		t.Fatalf("expected no provider call while locked")
	}
}

func TestDisconnectMarksRecordFailed(t *testing.T) {
	var gotStatus InstanceStatus
	var gotReason string
	store := &stubInstanceStore{
		updateStatusFn: func(_ context.Context, _ TenantIdentity, status InstanceStatus, reason string) error {
			gotStatus = status
			gotReason = reason
			return nil
		},
	}
	sink := &recordingActivitySink{}
	svc := newTestService(t,
		WithProviderConnector(&stubConnector{}),
		WithInstanceStore(store),
		WithActivitySink(sink),
	)

	if err := svc.Disconnect(context.Background(), testTenant(), "  "); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if gotStatus != InstanceStatusFailed {
		t.Fatalf("expected failed status, got %q", gotStatus)
	}
	if gotReason != "disconnected by operator" {
		t.Fatalf("expected default reason, got %q", gotReason)
	}
	if len(sink.entries) != 1 || sink.entries[0].Action != ActionDisconnect {
		t.Fatalf("expected disconnect activity entry, got %+v", sink.entries)
	}
}

func TestGetInstanceNotFound(t *testing.T) {
	svc := newTestService(t,
		WithProviderConnector(&stubConnector{}),
		WithInstanceStore(&stubInstanceStore{}),
	)

	_, err := svc.GetInstance(context.Background(), testTenant())
	if err == nil {
		t.Fatalf("expected not found error")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unexpected error %v", err)
	}
}
