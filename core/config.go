package core

import (
	"fmt"
	"strings"
	"time"
)

// DefaultQRLengthThreshold is the length above which a status-field value is
// treated as an embedded QR payload rather than a status word. The comparison
// is strictly greater-than; a value of exactly this length is a status word.
const DefaultQRLengthThreshold = 100

const (
	defaultConnectTimeout = 30 * time.Second
	defaultPollInterval   = 15 * time.Second
)

type ProviderConfig struct {
	BaseURL        string        `koanf:"base_url" mapstructure:"base_url"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" mapstructure:"connect_timeout"`
}

type PairingConfig struct {
	// QRLengthThreshold separates short status words from embedded QR
	// payloads when the provider overloads its status field. Values with a
	// length strictly greater than the threshold are payloads.
	QRLengthThreshold int `koanf:"qr_length_threshold" mapstructure:"qr_length_threshold"`
}

type PollerConfig struct {
	Interval    time.Duration `koanf:"interval" mapstructure:"interval"`
	MaxAttempts int           `koanf:"max_attempts" mapstructure:"max_attempts"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Provider    ProviderConfig `koanf:"provider" mapstructure:"provider"`
	Pairing     PairingConfig  `koanf:"pairing" mapstructure:"pairing"`
	Poller      PollerConfig   `koanf:"poller" mapstructure:"poller"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "channels",
		Provider: ProviderConfig{
			ConnectTimeout: defaultConnectTimeout,
		},
		Pairing: PairingConfig{
			QRLengthThreshold: DefaultQRLengthThreshold,
		},
		Poller: PollerConfig{
			Interval:    defaultPollInterval,
			MaxAttempts: 20,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Pairing.QRLengthThreshold < 0 {
		return fmt.Errorf("core: pairing.qr_length_threshold must be >= 0")
	}
	if c.Provider.ConnectTimeout < 0 {
		return fmt.Errorf("core: provider.connect_timeout must be >= 0")
	}
	return nil
}
