package channels

import (
	"fmt"

	channelscommand "github.com/goliatone/go-channels/command"
	channelsquery "github.com/goliatone/go-channels/query"
)

// CommandQueryService is the orchestrator surface the facade wraps: the
// mutating pipeline operations plus instance reads.
type CommandQueryService interface {
	channelscommand.MutatingService
	channelsquery.InstanceReader
}

type Commands struct {
	Provision      *channelscommand.ProvisionChannelCommand
	Disconnect     *channelscommand.DisconnectChannelCommand
	SaveToken      *channelscommand.SaveChannelTokenCommand
	WaitForPairing *channelscommand.WaitForPairingCommand
}

type Queries struct {
	GetInstance   *channelsquery.GetChannelInstanceQuery
	ListInstances *channelsquery.ListChannelInstancesQuery
	ListActivity  *channelsquery.ListChannelActivityQuery
}

// Facade bundles the command and query wrappers around one service so a host
// application registers the whole surface in a single call.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	activityReader channelsquery.ChannelActivityReader
	tokenWriter    channelscommand.TokenWriter
}

// WithActivityReader supplies the audit trail reader backing the activity
// query, typically the SQL activity store.
func WithActivityReader(reader channelsquery.ChannelActivityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.activityReader = reader
	}
}

// WithTokenWriter supplies the token persistence backing the save-token
// command, typically the SQL token store.
func WithTokenWriter(writer channelscommand.TokenWriter) FacadeOption {
	return func(options *facadeOptions) {
		options.tokenWriter = writer
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("channels: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.activityReader
	if reader == nil {
		if candidate, ok := service.(channelsquery.ChannelActivityReader); ok {
			reader = candidate
		}
	}
	writer := cfg.tokenWriter
	if writer == nil {
		if candidate, ok := service.(channelscommand.TokenWriter); ok {
			writer = candidate
		}
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Provision:      channelscommand.NewProvisionChannelCommand(service),
		Disconnect:     channelscommand.NewDisconnectChannelCommand(service),
		SaveToken:      channelscommand.NewSaveChannelTokenCommand(writer),
		WaitForPairing: channelscommand.NewWaitForPairingCommand(service),
	}
	facade.queries = Queries{
		GetInstance:   channelsquery.NewGetChannelInstanceQuery(service),
		ListInstances: channelsquery.NewListChannelInstancesQuery(service),
		ListActivity:  channelsquery.NewListChannelActivityQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
