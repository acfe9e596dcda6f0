package uazapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-channels/core"
	"github.com/goliatone/go-channels/transport"
)

const ProviderID = "uazapi"

const (
	defaultRequestTimeout = 30 * time.Second

	initPath    = "/instance/init"
	connectPath = "/instance/connect"
	statusPath  = "/instance/status"
)

type Config struct {
	BaseURL string
	// AdminToken authorizes instance creation. Per-instance tokens returned
	// by init authorize everything else.
	AdminToken     string
	Transport      core.TransportAdapter
	Heuristic      Heuristic
	RequestTimeout time.Duration
}

// Connector implements core.ProviderConnector against the uazapi REST API.
type Connector struct {
	baseURL        string
	adminToken     string
	transport      core.TransportAdapter
	heuristic      Heuristic
	requestTimeout time.Duration
}

func New(cfg Config) (*Connector, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("uazapi: base url is required")
	}
	adapter := cfg.Transport
	if adapter == nil {
		adapter = transport.NewRESTAdapter(nil)
	}
	heuristic := cfg.Heuristic
	if heuristic.LengthThreshold <= 0 {
		heuristic = DefaultHeuristic()
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &Connector{
		baseURL:        baseURL,
		adminToken:     strings.TrimSpace(cfg.AdminToken),
		transport:      adapter,
		heuristic:      heuristic,
		requestTimeout: requestTimeout,
	}, nil
}

func (c *Connector) ID() string {
	return ProviderID
}

// ApplySettings adopts the provider-facing slice of the resolved service
// config. Zero-value fields keep the connector's current settings.
func (c *Connector) ApplySettings(settings core.ProviderSettings) {
	if c == nil {
		return
	}
	if baseURL := strings.TrimRight(strings.TrimSpace(settings.BaseURL), "/"); baseURL != "" {
		c.baseURL = baseURL
	}
	if settings.QRLengthThreshold > 0 {
		c.heuristic.LengthThreshold = settings.QRLengthThreshold
	}
	if settings.ConnectTimeout > 0 {
		c.requestTimeout = settings.ConnectTimeout
	}
}

// Connect provisions or reconnects an instance and classifies the handshake
// artifact out of the response. An empty req.InstanceID creates a fresh
// instance first; otherwise the existing id is reconnected.
func (c *Connector) Connect(ctx context.Context, req core.ConnectInstanceRequest) (core.ConnectInstanceResult, error) {
	if c == nil || c.transport == nil {
		return core.ConnectInstanceResult{}, fmt.Errorf("uazapi: connector is not configured")
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return core.ConnectInstanceResult{}, fmt.Errorf("uazapi: token is required")
	}

	instanceID := strings.TrimSpace(req.InstanceID)
	if instanceID == "" {
		initPayload, err := c.call(ctx, http.MethodPost, initPath, c.initToken(token), map[string]any{
			"name": strings.TrimSpace(req.Tenant.InstanceName),
		})
		if err != nil {
			return core.ConnectInstanceResult{}, err
		}
		instanceID = firstString(initPayload, "instanceId", "instance_id", "instanceID", "id")
		if issued := firstString(initPayload, "token", "apikey"); issued != "" {
			token = issued
		}
	}

	payload, err := c.call(ctx, http.MethodPost, connectPath, token, map[string]any{
		"instance": instanceID,
	})
	if err != nil {
		return core.ConnectInstanceResult{}, err
	}

	if id := firstString(payload, "instanceId", "instance_id", "instanceID", "id"); id != "" {
		instanceID = id
	}
	extraction := Extract(payload, c.heuristic)
	status := mapInstanceStatus(extraction.Status)
	if extraction.QRCode == "" && status != core.InstanceStatusConnected {
		return core.ConnectInstanceResult{}, core.NewArtifactNotFoundError(extraction.Observed)
	}

	return core.ConnectInstanceResult{
		InstanceID: instanceID,
		Token:      token,
		Status:     status,
		QRCode:     extraction.QRCode,
		Metadata: map[string]any{
			"provider_status": extraction.Status,
		},
	}, nil
}

// InstanceStatus reports the current pairing state of an instance. A missing
// artifact is normal here; the poller only cares about the status word.
func (c *Connector) InstanceStatus(ctx context.Context, req core.InstanceStatusRequest) (core.InstanceStatusResult, error) {
	if c == nil || c.transport == nil {
		return core.InstanceStatusResult{}, fmt.Errorf("uazapi: connector is not configured")
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return core.InstanceStatusResult{}, fmt.Errorf("uazapi: token is required")
	}

	payload, err := c.call(ctx, http.MethodGet, statusPath, token, nil)
	if err != nil {
		return core.InstanceStatusResult{}, err
	}
	extraction := Extract(payload, c.heuristic)
	return core.InstanceStatusResult{
		Status: mapInstanceStatus(extraction.Status),
		QRCode: extraction.QRCode,
		Metadata: map[string]any{
			"provider_status": extraction.Status,
		},
	}, nil
}

func (c *Connector) initToken(fallback string) string {
	if c.adminToken != "" {
		return c.adminToken
	}
	return fallback
}

func (c *Connector) call(ctx context.Context, method, path, token string, body map[string]any) (map[string]any, error) {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("uazapi: encode request body: %w", err)
		}
	}

	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method: method,
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"token":        token,
		},
		Body:    encoded,
		Timeout: c.requestTimeout,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, core.NewProviderTimeoutError(err)
		}
		return nil, err
	}

	payload, err := Normalize(res.Body, res.StatusCode)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 && looksTruncated(res.Body) {
		return nil, core.NewMalformedResponseError(
			fmt.Errorf("uazapi: response body is not valid json"),
			string(res.Body),
		)
	}
	return payload, nil
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return false
}

// looksTruncated reports a non-empty body that is not valid JSON, which
// usually means a truncated or proxied error page rather than an API
// response.
func looksTruncated(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return trimmed != "" && !json.Valid([]byte(trimmed))
}

func mapInstanceStatus(word string) core.InstanceStatus {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "connected", "open", "online", "loggedin", "logged_in":
		return core.InstanceStatusConnected
	case "failed", "banned", "error", "closed":
		return core.InstanceStatusFailed
	case "":
		return core.InstanceStatusUnknown
	default:
		return core.InstanceStatusConnecting
	}
}

var _ core.ProviderConnector = (*Connector)(nil)
var _ core.ConfigurableConnector = (*Connector)(nil)
