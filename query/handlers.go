package query

import (
	"context"

	"github.com/goliatone/go-channels/core"
)

type InstanceReader interface {
	GetInstance(ctx context.Context, tenant core.TenantIdentity) (core.ChannelInstanceRecord, error)
	ListInstances(ctx context.Context, status core.InstanceStatus, limit int) ([]core.ChannelInstanceRecord, error)
}

type ChannelActivityReader interface {
	List(ctx context.Context, filter core.ChannelActivityFilter) (core.ChannelActivityPage, error)
}

type GetChannelInstanceQuery struct {
	reader InstanceReader
}

func NewGetChannelInstanceQuery(reader InstanceReader) *GetChannelInstanceQuery {
	return &GetChannelInstanceQuery{reader: reader}
}

func (q *GetChannelInstanceQuery) Query(ctx context.Context, msg GetChannelInstanceMessage) (core.ChannelInstanceRecord, error) {
	if q == nil || q.reader == nil {
		return core.ChannelInstanceRecord{}, queryDependencyError("query: instance reader is required")
	}
	return q.reader.GetInstance(ctx, msg.Tenant)
}

type ListChannelInstancesQuery struct {
	reader InstanceReader
}

func NewListChannelInstancesQuery(reader InstanceReader) *ListChannelInstancesQuery {
	return &ListChannelInstancesQuery{reader: reader}
}

func (q *ListChannelInstancesQuery) Query(
	ctx context.Context,
	msg ListChannelInstancesMessage,
) ([]core.ChannelInstanceRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: instance reader is required")
	}
	return q.reader.ListInstances(ctx, msg.Status, msg.Limit)
}

type ListChannelActivityQuery struct {
	reader ChannelActivityReader
}

func NewListChannelActivityQuery(reader ChannelActivityReader) *ListChannelActivityQuery {
	return &ListChannelActivityQuery{reader: reader}
}

func (q *ListChannelActivityQuery) Query(
	ctx context.Context,
	msg ListChannelActivityMessage,
) (core.ChannelActivityPage, error) {
	if q == nil || q.reader == nil {
		return core.ChannelActivityPage{}, queryDependencyError("query: channel activity reader is required")
	}
	return q.reader.List(ctx, msg.Filter)
}
