package adapters_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-channels/adapters/gocommand"
	"github.com/goliatone/go-channels/adapters/gojob"
	"github.com/goliatone/go-channels/adapters/gologger"
	channelscommand "github.com/goliatone/go-channels/command"
	"github.com/goliatone/go-channels/core"
)

func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	logger := &compatLogger{}
	provider := &compatProvider{logger: logger}

	_, _, jobProvider, jobLogger := gologger.ResolveForJob("channels", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	enqueueProbe := &compatEnqueuer{}
	enqueueAdapter := gojob.NewEnqueuerAdapter(enqueueProbe)
	if err := enqueueAdapter.Enqueue(ctx, &core.JobExecutionMessage{
		JobID:          gojob.JobIDPairingPoll,
		ScriptPath:     "channels.pairing.poll",
		Parameters:     map[string]any{"customer_id": "cust_1", "site_slug": "main"},
		IdempotencyKey: "idem_1",
		DedupPolicy:    "drop",
	}); err != nil {
		t.Fatalf("enqueue via gojob adapter: %v", err)
	}
	if enqueueProbe.last == nil || enqueueProbe.last.JobID != gojob.JobIDPairingPoll {
		t.Fatalf("expected go-job message mapping through enqueuer adapter")
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	commandAdapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := commandAdapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := commandAdapter.RegisterCommand(command.CommandFunc[compatMessage](func(context.Context, compatMessage) error {
		return nil
	})); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := commandAdapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get("channels.compat.command"); !ok {
		t.Fatalf("expected command resolver hook to mirror command into go-job queue registry")
	}
}

func TestRuntimeCompatibility_ChannelCommandDispatchThroughWrappers(t *testing.T) {
	svc := &compatMutatingService{}
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())

	provisionSub, err := gocommand.RegisterAndSubscribe(adapter, channelscommand.NewProvisionChannelCommand(svc))
	if err != nil {
		t.Fatalf("register provision wrapper: %v", err)
	}
	defer provisionSub.Unsubscribe()

	disconnectSub, err := gocommand.RegisterAndSubscribe(adapter, channelscommand.NewDisconnectChannelCommand(svc))
	if err != nil {
		t.Fatalf("register disconnect wrapper: %v", err)
	}
	defer disconnectSub.Unsubscribe()

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	tenant := core.TenantIdentity{CustomerID: "cust_1", SiteSlug: "main"}
	if err := gocommand.Dispatch(context.Background(), channelscommand.ProvisionChannelMessage{
		Request: core.RunRequest{Tenant: tenant, RequestToken: "tok_req"},
	}); err != nil {
		t.Fatalf("dispatch provision: %v", err)
	}
	if svc.runCalls != 1 || svc.lastRun.Tenant.CustomerID != "cust_1" {
		t.Fatalf("expected provision wrapper invocation through dispatcher")
	}

	if err := gocommand.Dispatch(context.Background(), channelscommand.DisconnectChannelMessage{
		Tenant: tenant,
		Reason: "manual",
	}); err != nil {
		t.Fatalf("dispatch disconnect: %v", err)
	}
	if svc.disconnectCalls != 1 || svc.lastDisconnectReason != "manual" {
		t.Fatalf("expected disconnect wrapper invocation through dispatcher")
	}
}

type compatMessage struct{}

func (compatMessage) Type() string { return "channels.compat.command" }

type compatEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	e.last = msg
	return nil
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }

type compatMutatingService struct {
	runCalls             int
	lastRun              core.RunRequest
	disconnectCalls      int
	lastDisconnectReason string
}

func (s *compatMutatingService) Run(_ context.Context, req core.RunRequest) core.PairingResult {
	s.runCalls++
	s.lastRun = req
	return core.PairingResult{
		CustomerID: req.Tenant.CustomerID,
		SiteSlug:   req.Tenant.SiteSlug,
	}
}

func (s *compatMutatingService) Disconnect(_ context.Context, _ core.TenantIdentity, reason string) error {
	s.disconnectCalls++
	s.lastDisconnectReason = reason
	return nil
}

func (s *compatMutatingService) WaitForPairing(context.Context, core.TenantIdentity, core.PollRunOptions) (core.PollRunResult, error) {
	return core.PollRunResult{}, nil
}
