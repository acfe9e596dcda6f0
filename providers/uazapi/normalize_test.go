package uazapi

import (
	"net/http"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestNormalizeUnwrapsKnownEnvelopes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{
			name: "json envelope",
			body: `{"json":{"instanceId":"inst_1","token":"tok_1"}}`,
		},
		{
			name: "data envelope",
			body: `{"data":{"instanceId":"inst_1","token":"tok_1"}}`,
		},
		{
			name: "identity-bearing body envelope",
			body: `{"body":{"instanceId":"inst_1","token":"tok_1"}}`,
		},
		{
			name: "stringified json envelope",
			body: `{"json":"{\"instanceId\":\"inst_1\",\"token\":\"tok_1\"}"}`,
		},
	}

	for _, tc := range cases {
		payload, err := Normalize([]byte(tc.body), http.StatusOK)
		if err != nil {
			t.Fatalf("%s: normalize: %v", tc.name, err)
		}
		if payload["instanceId"] != "inst_1" {
			t.Fatalf("%s: expected unwrapped payload, got %#v", tc.name, payload)
		}
	}
}

func TestNormalizeIdentityFieldsWinOverEnvelopes(t *testing.T) {
	body := `{"instanceId":"inst_top","data":{"instanceId":"inst_nested"}}`
	payload, err := Normalize([]byte(body), http.StatusOK)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if payload["instanceId"] != "inst_top" {
		t.Fatalf("expected top-level payload preferred, got %#v", payload)
	}
}

func TestNormalizeKeepsFlatPayloadWithoutIdentity(t *testing.T) {
	longStatus := strings.Repeat("q", 150)
	payload, err := Normalize([]byte(`{"status":"`+longStatus+`"}`), http.StatusOK)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if payload["status"] != longStatus {
		t.Fatalf("expected flat payload preserved, got %#v", payload)
	}
}

func TestNormalizeBodyEnvelopeWithoutIdentityStaysWrapped(t *testing.T) {
	payload, err := Normalize([]byte(`{"body":{"status":"connecting"}}`), http.StatusOK)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	nested, ok := payload["body"].(map[string]any)
	if !ok || nested["status"] != "connecting" {
		t.Fatalf("expected body without identity fields left in place, got %#v", payload)
	}
}

func TestNormalizeSanitizesTransportInternals(t *testing.T) {
	body := `{
		"status": "connecting",
		"socket": {"fd": 7},
		"_socket": {"fd": 7},
		"client": {"retries": 3},
		"_internal": "drop me",
		"_id": "keep me",
		"nested": {"ws": {}, "value": 1}
	}`
	payload, err := Normalize([]byte(body), http.StatusOK)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	for _, key := range []string{"socket", "_socket", "client", "_internal"} {
		if _, ok := payload[key]; ok {
			t.Fatalf("expected %q stripped, got %#v", key, payload)
		}
	}
	if payload["_id"] != "keep me" {
		t.Fatalf("expected _id allowed, got %#v", payload)
	}
	nested, ok := payload["nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested object kept, got %#v", payload)
	}
	if _, stripped := nested["ws"]; stripped {
		t.Fatalf("expected nested transport key stripped, got %#v", nested)
	}
	if nested["value"] != float64(1) {
		t.Fatalf("expected nested value kept, got %#v", nested)
	}
}

func TestNormalizeDegradesNonObjectBodies(t *testing.T) {
	for _, body := range []string{"", "[]", `[1,2,3]`, `42`, "plain text, not json"} {
		payload, err := Normalize([]byte(body), http.StatusOK)
		if err != nil {
			t.Fatalf("body %q: normalize: %v", body, err)
		}
		if len(payload) != 0 {
			t.Fatalf("body %q: expected empty payload, got %#v", body, payload)
		}
	}
}

func TestNormalizeReparsesDoubleEncodedObject(t *testing.T) {
	payload, err := Normalize([]byte(`"{\"instanceId\":\"inst_1\"}"`), http.StatusOK)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if payload["instanceId"] != "inst_1" {
		t.Fatalf("expected double-encoded object recovered, got %#v", payload)
	}
}

func TestNormalizeRejectsHTTPErrors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		message string
	}{
		{
			name:    "nested error message",
			body:    `{"error":{"message":"instance limit reached"}}`,
			message: "instance limit reached",
		},
		{
			name:    "top-level message",
			body:    `{"message":"invalid token"}`,
			message: "invalid token",
		},
		{
			name:    "string error",
			body:    `{"error":"boom"}`,
			message: "boom",
		},
		{
			name:    "unparseable body",
			body:    `<html>bad gateway</html>`,
			message: "provider request failed",
		},
	}

	for _, tc := range cases {
		_, err := Normalize([]byte(tc.body), http.StatusBadGateway)
		if err == nil {
			t.Fatalf("%s: expected error for status 502", tc.name)
		}
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			t.Fatalf("%s: expected rich error, got %T", tc.name, err)
		}
		if richErr.Code != http.StatusBadGateway {
			t.Fatalf("%s: expected status 502, got %d", tc.name, richErr.Code)
		}
		if !strings.Contains(richErr.Message, tc.message) {
			t.Fatalf("%s: expected message containing %q, got %q", tc.name, tc.message, richErr.Message)
		}
	}
}

func TestSanitizeBoundsRecursionDepth(t *testing.T) {
	deepest := map[string]any{"value": "leaf"}
	obj := deepest
	for i := 0; i < maxSanitizeDepth+2; i++ {
		obj = map[string]any{"next": obj}
	}

	out := sanitize(obj, 0)
	depth := 0
	for {
		next, ok := out["next"].(map[string]any)
		if !ok {
			break
		}
		out = next
		depth++
	}
	if depth != maxSanitizeDepth {
		t.Fatalf("expected walk truncated at %d levels, walked %d", maxSanitizeDepth, depth)
	}
	if len(out) != 0 {
		t.Fatalf("expected truncated subtree emptied, got %#v", out)
	}
}
