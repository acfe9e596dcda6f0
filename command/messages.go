package command

import (
	"strings"

	"github.com/goliatone/go-channels/core"
)

const (
	TypeProvisionChannel  = "channels.command.provision"
	TypeDisconnectChannel = "channels.command.disconnect"
	TypeSaveChannelToken  = "channels.command.token.save"
	TypeWaitForPairing    = "channels.command.pairing.wait"
)

type ProvisionChannelMessage struct {
	Request core.RunRequest
}

func (ProvisionChannelMessage) Type() string { return TypeProvisionChannel }

func (m ProvisionChannelMessage) Validate() error {
	return validateTenant(m.Request.Tenant)
}

type DisconnectChannelMessage struct {
	Tenant core.TenantIdentity
	Reason string
}

func (DisconnectChannelMessage) Type() string { return TypeDisconnectChannel }

func (m DisconnectChannelMessage) Validate() error {
	return validateTenant(m.Tenant)
}

type SaveChannelTokenMessage struct {
	Tenant core.TenantIdentity
	Token  string
}

func (SaveChannelTokenMessage) Type() string { return TypeSaveChannelToken }

func (m SaveChannelTokenMessage) Validate() error {
	if err := validateTenant(m.Tenant); err != nil {
		return err
	}
	if strings.TrimSpace(m.Token) == "" {
		return commandInvalidInputError("command: token is required")
	}
	return nil
}

type WaitForPairingMessage struct {
	Tenant  core.TenantIdentity
	Options core.PollRunOptions
}

func (WaitForPairingMessage) Type() string { return TypeWaitForPairing }

func (m WaitForPairingMessage) Validate() error {
	return validateTenant(m.Tenant)
}

func validateTenant(tenant core.TenantIdentity) error {
	if err := tenant.Validate(); err != nil {
		return commandInvalidInputError("command: " + err.Error())
	}
	return nil
}
