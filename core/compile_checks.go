package core

var (
	_ ChannelService   = (*Service)(nil)
	_ BackoffScheduler = ExponentialBackoffScheduler{}
)
