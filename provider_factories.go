package channels

import (
	"github.com/goliatone/go-channels/core"
	"github.com/goliatone/go-channels/providers/uazapi"
)

// UazapiConnector builds the uazapi-backed provider connector.
func UazapiConnector(cfg uazapi.Config) (core.ProviderConnector, error) {
	return uazapi.New(cfg)
}
