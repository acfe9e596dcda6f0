package uazapi

import (
	"strings"

	"github.com/goliatone/go-channels/core"
)

// statusFields are the provider keys that carry either a literal connection
// status word or, on some call paths, the entire QR payload. Checked in
// order at the top level, then inside a nested "instance" object.
var statusFields = []string{"status", "state", "connectionStatus"}

// qrFields are the conventional payload spellings checked by the fallback
// pass when no status field carried the artifact.
var qrFields = []string{"qrcode", "qrCode", "qr_code", "qr", "base64", "QRCode"}

const dataURIPrefix = "data:image"

// Heuristic disambiguates a status word from an embedded QR payload. The
// provider publishes no schema for the overloaded field, so classification
// rests on two independent signals: a data-URI prefix, and a length strictly
// greater than LengthThreshold. The threshold is an empirically chosen
// approximation, not a protocol constant; keep it configurable.
type Heuristic struct {
	LengthThreshold int
}

func DefaultHeuristic() Heuristic {
	return Heuristic{LengthThreshold: core.DefaultQRLengthThreshold}
}

// isPayload reports whether value looks like a QR payload rather than a
// short status word. The length comparison is strictly greater-than: a value
// of exactly LengthThreshold characters is a status word.
func (h Heuristic) isPayload(value string) bool {
	if strings.HasPrefix(value, "data:") {
		return true
	}
	threshold := h.LengthThreshold
	if threshold <= 0 {
		threshold = core.DefaultQRLengthThreshold
	}
	return len(value) > threshold
}

// Extraction is the classified outcome of scanning a normalized payload.
type Extraction struct {
	QRCode string
	Status string
	// Observed records every status-field value seen (with lengths) for
	// diagnostics when no artifact was found.
	Observed map[string]any
}

// Extract scans a normalized payload for the pairing artifact. Status fields
// are checked first, top level then nested instance object; values that fail
// both payload signals are kept as literal status words. A second pass over
// conventional QR field names covers call paths that use a dedicated field.
// Finding nothing is not an error here; the caller decides whether a missing
// artifact is fatal.
func Extract(payload map[string]any, heuristic Heuristic) Extraction {
	out := Extraction{
		Status:   "connecting",
		Observed: map[string]any{},
	}
	if len(payload) == 0 {
		return out
	}

	locations := []map[string]any{payload}
	if instance, ok := payload["instance"].(map[string]any); ok {
		locations = append(locations, instance)
	}

	statusSeen := false
	for i, location := range locations {
		for _, field := range statusFields {
			value := readString(location[field])
			if value == "" || strings.EqualFold(value, "null") {
				continue
			}
			out.Observed[observedKey(i, field)] = map[string]any{
				"value_length": len(value),
				"is_data_uri":  strings.HasPrefix(value, "data:"),
			}
			if heuristic.isPayload(value) {
				if formatted, ok := FormatQRCode(value); ok {
					out.QRCode = formatted
					return out
				}
				continue
			}
			if !statusSeen {
				out.Status = strings.ToLower(value)
				statusSeen = true
			}
		}
	}

	for _, location := range locations {
		for _, field := range qrFields {
			value := readString(location[field])
			if formatted, ok := FormatQRCode(value); ok {
				out.QRCode = formatted
				return out
			}
		}
	}

	return out
}

// FormatQRCode trims a raw payload and renders it as a self-describing data
// URI. Formatting a payload that already carries a data URI is the identity;
// empty values and the literal "null" are rejected.
func FormatQRCode(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return "", false
	}
	if strings.HasPrefix(trimmed, "data:") {
		return trimmed, true
	}
	return "data:image/png;base64," + trimmed, true
}

func observedKey(location int, field string) string {
	if location == 0 {
		return field
	}
	return "instance." + field
}
