package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-channels/core"
)

type MutatingService interface {
	Run(ctx context.Context, req core.RunRequest) core.PairingResult
	Disconnect(ctx context.Context, tenant core.TenantIdentity, reason string) error
	WaitForPairing(ctx context.Context, tenant core.TenantIdentity, opts core.PollRunOptions) (core.PollRunResult, error)
}

type TokenWriter interface {
	SaveToken(ctx context.Context, tenant core.TenantIdentity, token string) error
}

type ProvisionChannelCommand struct {
	service MutatingService
}

func NewProvisionChannelCommand(service MutatingService) *ProvisionChannelCommand {
	return &ProvisionChannelCommand{service: service}
}

// Execute runs the pairing pipeline. A pipeline failure surfaces in the
// stored PairingResult, not as a command error: callers always get a
// dashboard-renderable result.
func (c *ProvisionChannelCommand) Execute(ctx context.Context, msg ProvisionChannelMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: provision service is required")
	}
	out := c.service.Run(ctx, msg.Request)
	storeResult(ctx, out)
	return nil
}

type DisconnectChannelCommand struct {
	service MutatingService
}

func NewDisconnectChannelCommand(service MutatingService) *DisconnectChannelCommand {
	return &DisconnectChannelCommand{service: service}
}

func (c *DisconnectChannelCommand) Execute(ctx context.Context, msg DisconnectChannelMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: disconnect service is required")
	}
	return c.service.Disconnect(ctx, msg.Tenant, msg.Reason)
}

type SaveChannelTokenCommand struct {
	tokens TokenWriter
}

func NewSaveChannelTokenCommand(tokens TokenWriter) *SaveChannelTokenCommand {
	return &SaveChannelTokenCommand{tokens: tokens}
}

func (c *SaveChannelTokenCommand) Execute(ctx context.Context, msg SaveChannelTokenMessage) error {
	if c == nil || c.tokens == nil {
		return commandDependencyError("command: token writer is required")
	}
	return c.tokens.SaveToken(ctx, msg.Tenant, msg.Token)
}

type WaitForPairingCommand struct {
	service MutatingService
}

func NewWaitForPairingCommand(service MutatingService) *WaitForPairingCommand {
	return &WaitForPairingCommand{service: service}
}

func (c *WaitForPairingCommand) Execute(ctx context.Context, msg WaitForPairingMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pairing service is required")
	}
	out, err := c.service.WaitForPairing(ctx, msg.Tenant, msg.Options)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
