package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// RunRequest drives one pairing pipeline run. RequestToken and Existing are
// explicit inputs so callers never rely on ambient workflow state; when
// Existing is nil the pipeline loads the stored record itself.
type RunRequest struct {
	Tenant        TenantIdentity
	RequestToken  string
	FallbackToken string
	Existing      *ChannelInstanceRecord
	Metadata      map[string]any
}

// ReconcileDecision is the outcome of comparing a stored instance record with
// the resolved credential.
type ReconcileDecision struct {
	Reuse      bool
	InstanceID string
}

// ConnectInstanceRequest asks the provider for a new or reconnected instance.
// InstanceID is empty when a fresh instance is wanted.
type ConnectInstanceRequest struct {
	Tenant     TenantIdentity
	Token      string
	InstanceID string
	Metadata   map[string]any
}

// ConnectInstanceResult is the classified outcome of one provider connect
// call: identifiers, the current connection status, and the formatted QR
// artifact when one was present.
type ConnectInstanceResult struct {
	InstanceID string
	Token      string
	Status     InstanceStatus
	QRCode     string
	Metadata   map[string]any
}

type InstanceStatusRequest struct {
	Tenant     TenantIdentity
	Token      string
	InstanceID string
}

type InstanceStatusResult struct {
	Status   InstanceStatus
	QRCode   string
	Metadata map[string]any
}

/// ProviderConnector is the outbound edge of the pipeline: one call that,
// given a resolved token and optional instance id, yields a classified
// connect result, and one that reports current instance status for polling.
type ProviderConnector interface {
	ID() string
	Connect(ctx context.Context, req ConnectInstanceRequest) (ConnectInstanceResult, error)
	InstanceStatus(ctx context.Context, req InstanceStatusRequest) (InstanceStatusResult, error)
}

// ProviderSettings is the provider-facing slice of the resolved service
// config. The service pushes it into the connector once, after the
// defaults/config/runtime layers are merged.
type ProviderSettings struct {
	BaseURL           string
	ConnectTimeout    time.Duration
	QRLengthThreshold int
}

// ConfigurableConnector is implemented by connectors that accept resolved
// service configuration. Zero-value fields leave the connector's own
// settings untouched.
type ConfigurableConnector interface {
	ApplySettings(settings ProviderSettings)
}

type UpsertInstanceInput struct {
	Tenant     TenantIdentity
	InstanceID string
	Token      string
	Status     InstanceStatus
	QRCode     string
	LastError  string
}

// InstanceStore persists ChannelInstanceRecord rows keyed by
// `{customer_id, site_slug}`. Records are upserted, never deleted.
type InstanceStore interface {
	GetByTenant(ctx context.Context, tenant TenantIdentity) (ChannelInstanceRecord, bool, error)
	Upsert(ctx context.Context, in UpsertInstanceInput) (ChannelInstanceRecord, error)
	UpdateStatus(ctx context.Context, tenant TenantIdentity, status InstanceStatus, reason string) error
	ListByStatus(ctx context.Context, status InstanceStatus, limit int) ([]ChannelInstanceRecord, error)
}

// TokenStore reads the persisted channel token for a tenant. A missing token
// is reported as an empty string, not an error.
type TokenStore interface {
	GetStoredToken(ctx context.Context, tenant TenantIdentity) (string, error)
}

type ChannelActivityFilter struct {
	CustomerID string
	SiteSlug   string
	Action     string
	Status     ChannelActivityStatus
	From       *time.Time
	To         *time.Time
	Page       int
	PerPage    int
}

type ChannelActivityPage struct {
	Items   []ChannelActivityEntry
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

type ActivitySink interface {
	Record(ctx context.Context, entry ChannelActivityEntry) error
	List(ctx context.Context, filter ChannelActivityFilter) (ChannelActivityPage, error)
}

// ActivityRetentionPolicy bounds the audit trail by age, by row count, or
// both. Zero values disable the corresponding bound.
type ActivityRetentionPolicy struct {
	TTL    time.Duration
	RowCap int
}

type ActivityRetentionPruner interface {
	Prune(ctx context.Context, policy ActivityRetentionPolicy) (int, error)
}

type LockHandle interface {
	Unlock(ctx context.Context) error
}

// TenantLocker serializes pipeline runs for the same tenant key. Concurrent
// reconciliation against one stored record can race and create duplicate
// provider instances.
type TenantLocker interface {
	Acquire(ctx context.Context, tenantKey string, ttl time.Duration) (LockHandle, error)
}

type BackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type TransportRequest struct {
	Method      string
	URL         string
	Headers     map[string]string
	Query       map[string]string
	Body        []byte
	Metadata    map[string]any
	Timeout     time.Duration
	Idempotency string

	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

// JobWorkerEvent carries worker lifecycle details for observers such as
// activity sinks and metrics collectors.
type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

// ChannelService is the orchestrator surface exposed to commands, queries,
// and HTTP handlers.
type ChannelService interface {
	Run(ctx context.Context, req RunRequest) PairingResult
	Disconnect(ctx context.Context, tenant TenantIdentity, reason string) error
	GetInstance(ctx context.Context, tenant TenantIdentity) (ChannelInstanceRecord, error)
	ListInstances(ctx context.Context, status InstanceStatus, limit int) ([]ChannelInstanceRecord, error)
}
