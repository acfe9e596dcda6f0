package query

import (
	"github.com/goliatone/go-channels/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[GetChannelInstanceMessage, core.ChannelInstanceRecord]     = (*GetChannelInstanceQuery)(nil)
	_ gocmd.Querier[ListChannelInstancesMessage, []core.ChannelInstanceRecord] = (*ListChannelInstancesQuery)(nil)
	_ gocmd.Querier[ListChannelActivityMessage, core.ChannelActivityPage]      = (*ListChannelActivityQuery)(nil)
)
