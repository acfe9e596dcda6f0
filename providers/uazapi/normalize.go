package uazapi

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-channels/core"
)

// maxSanitizeDepth bounds the defensive sanitization walk over nested
// response trees.
const maxSanitizeDepth = 5

// identityFields are the provider keys whose presence marks an object as the
// business payload rather than an envelope.
var identityFields = []string{
	"instanceId", "instance_id", "instanceID",
	"token",
	"id",
}

// droppedKeys are transport internals observed leaking into payloads from the
// provider's SDK. They are never business data.
var droppedKeys = map[string]struct{}{
	"socket":    {},
	"_socket":   {},
	"client":    {},
	"ws":        {},
	"conn":      {},
	"transport": {},
}

// allowedPrivateKeys are private-prefixed keys that still carry business
// data and survive sanitization.
var allowedPrivateKeys = map[string]struct{}{
	"_id": {},
}

// Normalize locates the substructure of a raw provider response that carries
// business data. HTTP failures are rejected first; after that the normalizer
// unwraps known envelope shapes (`json`, `data`, identity-bearing `body`),
// falls back to a depth-bounded sanitization pass, and finally degrades to an
// empty object rather than erroring, leaving extraction to report the missing
// artifact.
func Normalize(body []byte, statusCode int) (map[string]any, error) {
	raw := decodeLoose(body)

	if statusCode >= 400 {
		return nil, core.NewProviderHTTPError(statusCode, extractErrorMessage(raw, statusCode))
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		// Strings are retried as JSON; anything else (arrays, scalars,
		// nothing) degrades to the empty payload.
		if text, isText := raw.(string); isText {
			if reparsed, err := decodeObject([]byte(text)); err == nil {
				obj = reparsed
			}
		}
		if obj == nil {
			return map[string]any{}, nil
		}
	}

	if payload := unwrapEnvelope(obj); payload != nil {
		return payload, nil
	}

	// No envelope matched: the object itself is the best payload candidate
	// once transport internals are stripped.
	return sanitize(obj, 0), nil
}

func unwrapEnvelope(obj map[string]any) map[string]any {
	if hasIdentityField(obj) {
		return obj
	}
	if nested := nestedObject(obj, "json"); nested != nil {
		return nested
	}
	if nested := nestedObject(obj, "data"); nested != nil {
		return nested
	}
	if nested := nestedObject(obj, "body"); nested != nil && hasIdentityField(nested) {
		return nested
	}
	return nil
}

func nestedObject(obj map[string]any, key string) map[string]any {
	value, ok := obj[key]
	if !ok {
		return nil
	}
	switch typed := value.(type) {
	case map[string]any:
		return typed
	case string:
		if reparsed, err := decodeObject([]byte(typed)); err == nil {
			return reparsed
		}
	}
	return nil
}

func hasIdentityField(obj map[string]any) bool {
	for _, field := range identityFields {
		if _, ok := obj[field]; ok {
			return true
		}
	}
	return false
}

// sanitize drops transport-internal keys and private-prefixed keys not on the
// allow-list, recursing at most maxSanitizeDepth levels.
func sanitize(obj map[string]any, depth int) map[string]any {
	if depth >= maxSanitizeDepth {
		return map[string]any{}
	}
	out := make(map[string]any, len(obj))
	for key, value := range obj {
		if _, dropped := droppedKeys[strings.ToLower(key)]; dropped {
			continue
		}
		if strings.HasPrefix(key, "_") {
			if _, allowed := allowedPrivateKeys[key]; !allowed {
				continue
			}
		}
		if nested, ok := value.(map[string]any); ok {
			out[key] = sanitize(nested, depth+1)
			continue
		}
		out[key] = value
	}
	return out
}

// extractErrorMessage pulls the most specific human-readable message out of
// an error body: error.message, then message, then a string error, then a
// synthesized default.
func extractErrorMessage(raw any, statusCode int) string {
	obj, _ := raw.(map[string]any)
	if obj != nil {
		if nested, ok := obj["error"].(map[string]any); ok {
			if msg := readString(nested["message"]); msg != "" {
				return msg
			}
		}
		if msg := readString(obj["message"]); msg != "" {
			return msg
		}
		if msg := readString(obj["error"]); msg != "" {
			return msg
		}
	}
	return "HTTP " + readString(statusCode) + ": provider request failed"
}

// decodeLoose parses a body as JSON, falling back to the raw text when the
// body is not valid JSON.
func decodeLoose(body []byte) any {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return trimmed
	}
	return value
}

func decodeObject(body []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}
