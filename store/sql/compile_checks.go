package sqlstore

import "github.com/goliatone/go-channels/core"

var (
	_ core.InstanceStore           = (*InstanceStore)(nil)
	_ core.TokenStore              = (*TokenStore)(nil)
	_ core.ActivitySink            = (*ActivityStore)(nil)
	_ core.ActivityRetentionPruner = (*ActivityStore)(nil)
)
