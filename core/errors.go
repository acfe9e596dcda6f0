package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ChannelErrorBadInput          = "CHANNELS_BAD_INPUT"
	ChannelErrorNoToken           = "CHANNELS_NO_TOKEN"
	ChannelErrorProviderHTTP      = "CHANNELS_PROVIDER_HTTP"
	ChannelErrorProviderTimeout   = "CHANNELS_PROVIDER_TIMEOUT"
	ChannelErrorMalformedResponse = "CHANNELS_MALFORMED_RESPONSE"
	ChannelErrorArtifactNotFound  = "CHANNELS_ARTIFACT_NOT_FOUND"
	ChannelErrorInstanceNotFound  = "CHANNELS_INSTANCE_NOT_FOUND"
	ChannelErrorTenantLocked      = "CHANNELS_TENANT_LOCKED"
	ChannelErrorInternal          = "CHANNELS_INTERNAL_ERROR"
)

// diagnosticBodyLimit bounds how much of an unparseable provider body is
// carried in error metadata.
const diagnosticBodyLimit = 500

// NewNoTokenError reports that no channel token could be resolved for the
// tenant from any candidate source.
func NewNoTokenError(tenant TenantIdentity) error {
	return goerrors.New(
		"core: no channel token configured for tenant",
		goerrors.CategoryBadInput,
	).
		WithCode(http.StatusBadRequest).
		WithTextCode(ChannelErrorNoToken).
		WithMetadata(map[string]any{
			"customer_id": strings.TrimSpace(tenant.CustomerID),
			"site_slug":   strings.TrimSpace(tenant.SiteSlug),
		})
}

// NewProviderHTTPError wraps a >=400 provider response. Callers may retry;
// this module does not.
func NewProviderHTTPError(statusCode int, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return goerrors.New(message, goerrors.CategoryExternal).
		WithCode(statusCode).
		WithTextCode(ChannelErrorProviderHTTP).
		WithMetadata(map[string]any{"provider_status": statusCode})
}

// NewProviderTimeoutError marks an outbound call that exceeded its timeout
// budget. Retryable.
func NewProviderTimeoutError(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, "core: provider call timed out").
		WithCode(http.StatusGatewayTimeout).
		WithTextCode(ChannelErrorProviderTimeout).
		WithMetadata(map[string]any{"retryable": true})
}

// NewMalformedResponseError reports a provider body that survived no
// normalization fallback. The body is truncated for diagnostics.
func NewMalformedResponseError(source error, rawBody string) error {
	truncated := rawBody
	if len(truncated) > diagnosticBodyLimit {
		truncated = truncated[:diagnosticBodyLimit]
	}
	return goerrors.Wrap(source, goerrors.CategoryExternal, "core: provider response is not parseable").
		WithCode(http.StatusBadGateway).
		WithTextCode(ChannelErrorMalformedResponse).
		WithMetadata(map[string]any{"body_excerpt": truncated})
}

// NewArtifactNotFoundError reports that normalization succeeded but no
// handshake artifact could be classified. Observed status-field values and
// lengths ride along to aid heuristic tuning.
func NewArtifactNotFoundError(observed map[string]any) error {
	err := goerrors.New(
		"core: no pairing artifact found in provider response",
		goerrors.CategoryOperation,
	).
		WithCode(http.StatusBadGateway).
		WithTextCode(ChannelErrorArtifactNotFound)
	if len(observed) > 0 {
		err.WithMetadata(observed)
	}
	return err
}

func channelErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureChannelErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "no channel token"), strings.Contains(msg, "token is required"):
		return newChannelError(err.Error(), goerrors.CategoryBadInput, ChannelErrorNoToken)
	case strings.Contains(msg, "timed out"), strings.Contains(msg, "deadline exceeded"):
		return newChannelError(err.Error(), goerrors.CategoryExternal, ChannelErrorProviderTimeout)
	case strings.Contains(msg, "lock already held"):
		return newChannelError(err.Error(), goerrors.CategoryConflict, ChannelErrorTenantLocked)
	case strings.Contains(msg, "not found"):
		return newChannelError(err.Error(), goerrors.CategoryNotFound, ChannelErrorInstanceNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newChannelError(err.Error(), goerrors.CategoryBadInput, ChannelErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureChannelErrorEnvelope(mapped)
}

func newChannelError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureChannelErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureChannelErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = channelHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultChannelTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultChannelTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ChannelErrorBadInput
	case goerrors.CategoryNotFound:
		return ChannelErrorInstanceNotFound
	case goerrors.CategoryConflict:
		return ChannelErrorTenantLocked
	case goerrors.CategoryExternal:
		return ChannelErrorProviderHTTP
	case goerrors.CategoryOperation:
		return ChannelErrorArtifactNotFound
	default:
		return ChannelErrorInternal
	}
}

func channelHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether the caller may retry the run that produced err.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(richErr.TextCode), ChannelErrorProviderTimeout) {
		return true
	}
	if retryable, ok := richErr.Metadata["retryable"].(bool); ok {
		return retryable
	}
	return false
}
