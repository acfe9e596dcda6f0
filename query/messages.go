package query

import (
	"github.com/goliatone/go-channels/core"
)

const (
	TypeGetChannelInstance   = "channels.query.instance.get"
	TypeListChannelInstances = "channels.query.instance.list"
	TypeListChannelActivity  = "channels.query.activity.list"
)

type GetChannelInstanceMessage struct {
	Tenant core.TenantIdentity
}

func (GetChannelInstanceMessage) Type() string { return TypeGetChannelInstance }

func (m GetChannelInstanceMessage) Validate() error {
	if err := m.Tenant.Validate(); err != nil {
		return queryInvalidInputError("query: " + err.Error())
	}
	return nil
}

type ListChannelInstancesMessage struct {
	Status core.InstanceStatus
	Limit  int
}

func (ListChannelInstancesMessage) Type() string { return TypeListChannelInstances }

func (m ListChannelInstancesMessage) Validate() error {
	if m.Limit < 0 {
		return queryInvalidInputError("query: limit must be >= 0")
	}
	return nil
}

type ListChannelActivityMessage struct {
	Filter core.ChannelActivityFilter
}

func (ListChannelActivityMessage) Type() string { return TypeListChannelActivity }

func (m ListChannelActivityMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryInvalidInputError("query: page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryInvalidInputError("query: per_page must be >= 0")
	}
	return nil
}
