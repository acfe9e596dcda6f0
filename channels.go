package channels

import "github.com/goliatone/go-channels/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type TenantIdentity = core.TenantIdentity
type RunRequest = core.RunRequest
type PairingResult = core.PairingResult
type PairingStatus = core.PairingStatus
type InstanceStatus = core.InstanceStatus
type ChannelInstanceRecord = core.ChannelInstanceRecord
type ChannelActivityEntry = core.ChannelActivityEntry
type ChannelActivityFilter = core.ChannelActivityFilter
type ChannelActivityPage = core.ChannelActivityPage
type PollRunOptions = core.PollRunOptions
type PollRunResult = core.PollRunResult

type ProviderConnector = core.ProviderConnector
type InstanceStore = core.InstanceStore
type TokenStore = core.TokenStore
type ActivitySink = core.ActivitySink
type TenantLocker = core.TenantLocker

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithProviderConnector = core.WithProviderConnector
	WithInstanceStore     = core.WithInstanceStore
	WithTokenStore        = core.WithTokenStore
	WithActivitySink      = core.WithActivitySink
	WithTenantLocker      = core.WithTenantLocker
	WithBackoffScheduler  = core.WithBackoffScheduler
	WithClock             = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
