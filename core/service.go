package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service is the pairing pipeline orchestrator. One Run call performs one
// resolve/reconcile/connect/extract cycle and always returns a tenant-scoped
// PairingResult; failures never escape the boundary.
type Service struct {
	config           Config
	logger           Logger
	loggerProvider   LoggerProvider
	metricsRecorder  MetricsRecorder
	errorFactory     ErrorFactory
	errorMapper      ErrorMapper
	configProvider   ConfigProvider
	optionsResolver  OptionsResolver
	connector        ProviderConnector
	instanceStore    InstanceStore
	tokenStore       TokenStore
	activitySink     ActivitySink
	tenantLocker     TenantLocker
	backoffScheduler BackoffScheduler
	clock            func() time.Time
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("channels", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("channels"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.tenantLocker == nil {
		builder.tenantLocker = NewMemoryTenantLocker()
	}
	if builder.clock == nil {
		builder.clock = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.backoffScheduler == nil {
		initial := finalConfig.Poller.Interval
		if initial <= 0 {
			initial = defaultPollInitialBackoff
		}
		builder.backoffScheduler = ExponentialBackoffScheduler{
			Initial: initial,
			Max:     defaultPollMaxBackoff,
		}
	}
	if configurable, ok := builder.connector.(ConfigurableConnector); ok {
		configurable.ApplySettings(ProviderSettings{
			BaseURL:           finalConfig.Provider.BaseURL,
			ConnectTimeout:    finalConfig.Provider.ConnectTimeout,
			QRLengthThreshold: finalConfig.Pairing.QRLengthThreshold,
		})
	}

	return &Service{
		config:           finalConfig,
		logger:           logger,
		loggerProvider:   provider,
		metricsRecorder:  builder.metricsRecorder,
		errorFactory:     builder.errorFactory,
		errorMapper:      builder.errorMapper,
		configProvider:   builder.configProvider,
		optionsResolver:  builder.optionsResolver,
		connector:        builder.connector,
		instanceStore:    builder.instanceStore,
		tokenStore:       builder.tokenStore,
		activitySink:     builder.activitySink,
		tenantLocker:     builder.tenantLocker,
		backoffScheduler: builder.backoffScheduler,
		clock:            builder.clock,
	}, nil
}

// Setup is an alias for NewService kept for wiring parity with sibling
// modules.
func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
