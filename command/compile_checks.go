package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProvisionChannelMessage]  = (*ProvisionChannelCommand)(nil)
	_ gocmd.Commander[DisconnectChannelMessage] = (*DisconnectChannelCommand)(nil)
	_ gocmd.Commander[SaveChannelTokenMessage]  = (*SaveChannelTokenCommand)(nil)
	_ gocmd.Commander[WaitForPairingMessage]    = (*WaitForPairingCommand)(nil)
)
