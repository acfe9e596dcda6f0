package uazapi

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/goliatone/go-channels/core"
	goerrors "github.com/goliatone/go-errors"
)

type scriptedResponse struct {
	status int
	body   string
	err    error
}

type fakeTransport struct {
	responses []scriptedResponse
	requests  []core.TransportRequest
}

func (f *fakeTransport) Kind() string { return "fake" }

func (f *fakeTransport) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	f.requests = append(f.requests, req)
	if len(f.responses) == 0 {
		return core.TransportResponse{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	if next.err != nil {
		return core.TransportResponse{}, next.err
	}
	status := next.status
	if status == 0 {
		status = http.StatusOK
	}
	return core.TransportResponse{StatusCode: status, Body: []byte(next.body)}, nil
}

func newTestConnector(t *testing.T, transport core.TransportAdapter, adminToken string) *Connector {
	t.Helper()
	connector, err := New(Config{
		BaseURL:    "https://uazapi.example.com/",
		AdminToken: adminToken,
		Transport:  transport,
	})
	if err != nil {
		t.Fatalf("build connector: %v", err)
	}
	return connector
}

func TestConnectInitializesFreshInstance(t *testing.T) {
	qrPayload := strings.Repeat("q", 150)
	transport := &fakeTransport{responses: []scriptedResponse{
		{body: `{"instanceId":"inst_new","token":"tok_issued"}`},
		{body: `{"instanceId":"inst_new","status":"` + qrPayload + `"}`},
	}}
	connector := newTestConnector(t, transport, "tok_admin")

	result, err := connector.Connect(context.Background(), core.ConnectInstanceRequest{
		Tenant: core.TenantIdentity{CustomerID: "cust_1", SiteSlug: "main", InstanceName: "Main"},
		Token:  "tok_tenant",
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if len(transport.requests) != 2 {
		t.Fatalf("expected init and connect calls, got %d", len(transport.requests))
	}
	if !strings.HasSuffix(transport.requests[0].URL, initPath) {
		t.Fatalf("expected init call first, got %q", transport.requests[0].URL)
	}
	if transport.requests[0].Headers["token"] != "tok_admin" {
		t.Fatalf("expected admin token on init, got %q", transport.requests[0].Headers["token"])
	}
	if !strings.HasSuffix(transport.requests[1].URL, connectPath) {
		t.Fatalf("expected connect call second, got %q", transport.requests[1].URL)
	}
	if transport.requests[1].Headers["token"] != "tok_issued" {
		t.Fatalf("expected issued instance token on connect, got %q", transport.requests[1].Headers["token"])
	}
	if result.InstanceID != "inst_new" || result.Token != "tok_issued" {
		t.Fatalf("unexpected identity %+v", result)
	}
	if result.Status != core.InstanceStatusConnecting {
		t.Fatalf("expected connecting status, got %q", result.Status)
	}
	if result.QRCode != "data:image/png;base64,"+qrPayload {
		t.Fatalf("expected formatted qr artifact, got %q", result.QRCode)
	}
}

func TestConnectReconnectsExistingInstance(t *testing.T) {
	transport := &fakeTransport{responses: []scriptedResponse{
		{body: `{"instanceId":"inst_1","status":"connected"}`},
	}}
	connector := newTestConnector(t, transport, "")

	result, err := connector.Connect(context.Background(), core.ConnectInstanceRequest{
		Tenant:     core.TenantIdentity{CustomerID: "cust_1", SiteSlug: "main"},
		Token:      "tok_1",
		InstanceID: "inst_1",
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if len(transport.requests) != 1 {
		t.Fatalf("expected single connect call for existing instance, got %d", len(transport.requests))
	}
	if !strings.HasSuffix(transport.requests[0].URL, connectPath) {
		t.Fatalf("expected connect path, got %q", transport.requests[0].URL)
	}
	if result.Status != core.InstanceStatusConnected {
		t.Fatalf("expected connected status, got %q", result.Status)
	}
	if result.QRCode != "" {
		t.Fatalf("expected no artifact for connected instance, got %q", result.QRCode)
	}
}

func TestConnectEnvelopedResponse(t *testing.T) {
	qrPayload := strings.Repeat("q", 150)
	transport := &fakeTransport{responses: []scriptedResponse{
		{body: `{"data":{"instanceId":"inst_1","qrcode":"` + qrPayload + `"}}`},
	}}
	connector := newTestConnector(t, transport, "")

	result, err := connector.Connect(context.Background(), core.ConnectInstanceRequest{
		Tenant:     core.TenantIdentity{CustomerID: "cust_1", SiteSlug: "main"},
		Token:      "tok_1",
		InstanceID: "inst_1",
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if result.QRCode == "" {
		t.Fatalf("expected artifact from enveloped response")
	}
	if result.InstanceID != "inst_1" {
		t.Fatalf("expected instance id from envelope, got %q", result.InstanceID)
	}
}

func TestConnectReportsMissingArtifact(t *testing.T) {
	transport := &fakeTransport{responses: []scriptedResponse{
		{body: `{"status":"connecting"}`},
	}}
	connector := newTestConnector(t, transport, "")

	_, err := connector.Connect(context.Background(), core.ConnectInstanceRequest{
		Tenant:     core.TenantIdentity{CustomerID: "cust_1", SiteSlug: "main"},
		Token:      "tok_1",
		InstanceID: "inst_1",
	})
	if err == nil {
		t.Fatalf("expected artifact-not-found error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != core.ChannelErrorArtifactNotFound {
		t.Fatalf("expected artifact text code, got %q", richErr.TextCode)
	}
	if _, ok := richErr.Metadata["status"]; !ok {
		t.Fatalf("expected observed status metadata, got %#v", richErr.Metadata)
	}
}

func TestConnectMapsTimeout(t *testing.T) {
	transport := &fakeTransport{responses: []scriptedResponse{
		{err: context.DeadlineExceeded},
	}}
	connector := newTestConnector(t, transport, "")

	_, err := connector.Connect(context.Background(), core.ConnectInstanceRequest{
		Tenant:     core.TenantIdentity{CustomerID: "cust_1", SiteSlug: "main"},
		Token:      "tok_1",
		InstanceID: "inst_1",
	})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != core.ChannelErrorProviderTimeout {
		t.Fatalf("expected timeout text code, got %q", richErr.TextCode)
	}
	if !core.IsRetryable(err) {
		t.Fatalf("expected timeout to be retryable")
	}
}

func TestConnectSurfacesProviderHTTPError(t *testing.T) {
	transport := &fakeTransport{responses: []scriptedResponse{
		{status: http.StatusUnauthorized, body: `{"error":{"message":"invalid token"}}`},
	}}
	connector := newTestConnector(t, transport, "")

	_, err := connector.Connect(context.Background(), core.ConnectInstanceRequest{
		Tenant:     core.TenantIdentity{CustomerID: "cust_1", SiteSlug: "main"},
		Token:      "tok_1",
		InstanceID: "inst_1",
	})
	if err == nil {
		t.Fatalf("expected provider http error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", richErr.Code)
	}
	if !strings.Contains(richErr.Message, "invalid token") {
		t.Fatalf("expected provider message, got %q", richErr.Message)
	}
}

func TestConnectRejectsMalformedBody(t *testing.T) {
	transport := &fakeTransport{responses: []scriptedResponse{
		{body: `<html>gateway timeout</ht`},
	}}
	connector := newTestConnector(t, transport, "")

	_, err := connector.Connect(context.Background(), core.ConnectInstanceRequest{
		Tenant:     core.TenantIdentity{CustomerID: "cust_1", SiteSlug: "main"},
		Token:      "tok_1",
		InstanceID: "inst_1",
	})
	if err == nil {
		t.Fatalf("expected malformed response error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != core.ChannelErrorMalformedResponse {
		t.Fatalf("expected malformed text code, got %q", richErr.TextCode)
	}
	excerpt, _ := richErr.Metadata["body_excerpt"].(string)
	if !strings.Contains(excerpt, "gateway timeout") {
		t.Fatalf("expected body excerpt in metadata, got %#v", richErr.Metadata)
	}
}

func TestConnectRequiresToken(t *testing.T) {
	connector := newTestConnector(t, &fakeTransport{}, "")
	_, err := connector.Connect(context.Background(), core.ConnectInstanceRequest{
		Tenant: core.TenantIdentity{CustomerID: "cust_1", SiteSlug: "main"},
		Token:  "   ",
	})
	if err == nil {
		t.Fatalf("expected missing token error")
	}
}

func TestInstanceStatusMapsProviderWords(t *testing.T) {
	cases := map[string]core.InstanceStatus{
		"connected": core.InstanceStatusConnected,
		"open":      core.InstanceStatusConnected,
		"loggedIn":  core.InstanceStatusConnected,
		"banned":    core.InstanceStatusFailed,
		"closed":    core.InstanceStatusFailed,
		"qrcode":    core.InstanceStatusConnecting,
	}
	for word, want := range cases {
		transport := &fakeTransport{responses: []scriptedResponse{
			{body: `{"status":"` + word + `"}`},
		}}
		connector := newTestConnector(t, transport, "")

		result, err := connector.InstanceStatus(context.Background(), core.InstanceStatusRequest{
			Tenant:     core.TenantIdentity{CustomerID: "cust_1", SiteSlug: "main"},
			Token:      "tok_1",
			InstanceID: "inst_1",
		})
		if err != nil {
			t.Fatalf("status %q: %v", word, err)
		}
		if result.Status != want {
			t.Fatalf("status %q: expected %q, got %q", word, want, result.Status)
		}
		if !strings.HasSuffix(transport.requests[0].URL, statusPath) {
			t.Fatalf("expected status path, got %q", transport.requests[0].URL)
		}
	}
}

func TestInstanceStatusCarriesRefreshedQR(t *testing.T) {
	qrPayload := strings.Repeat("r", 150)
	transport := &fakeTransport{responses: []scriptedResponse{
		{body: `{"status":"connecting","qrcode":"` + qrPayload + `"}`},
	}}
	connector := newTestConnector(t, transport, "")

	result, err := connector.InstanceStatus(context.Background(), core.InstanceStatusRequest{
		Tenant:     core.TenantIdentity{CustomerID: "cust_1", SiteSlug: "main"},
		Token:      "tok_1",
		InstanceID: "inst_1",
	})
	if err != nil {
		t.Fatalf("instance status: %v", err)
	}
	if result.QRCode != "data:image/png;base64,"+qrPayload {
		t.Fatalf("expected refreshed artifact, got %q", result.QRCode)
	}
}

func TestApplySettingsRetargetsBaseURLAndThreshold(t *testing.T) {
	ctx := context.Background()
	overloaded := strings.Repeat("q", 150)
	transport := &fakeTransport{responses: []scriptedResponse{
		{body: `{"status":"` + overloaded + `"}`},
	}}
	connector := newTestConnector(t, transport, "tok_admin")

	connector.ApplySettings(core.ProviderSettings{
		BaseURL:           "https://gateway.example.com/",
		QRLengthThreshold: 200,
	})

	result, err := connector.InstanceStatus(ctx, core.InstanceStatusRequest{
		Token:      "tok_1",
		InstanceID: "inst_1",
	})
	if err != nil {
		t.Fatalf("instance status: %v", err)
	}
	if !strings.HasPrefix(transport.requests[0].URL, "https://gateway.example.com/") {
		t.Fatalf("expected retargeted base url, got %q", transport.requests[0].URL)
	}
	if result.QRCode != "" {
		t.Fatalf("expected 150-char value under raised threshold to stay a status word, got %q", result.QRCode)
	}
	if result.Status != core.InstanceStatusConnecting {
		t.Fatalf("expected connecting status, got %q", result.Status)
	}
}

func TestApplySettingsIgnoresZeroValues(t *testing.T) {
	transport := &fakeTransport{}
	connector := newTestConnector(t, transport, "tok_admin")

	connector.ApplySettings(core.ProviderSettings{})

	if connector.baseURL != "https://uazapi.example.com" {
		t.Fatalf("expected base url untouched, got %q", connector.baseURL)
	}
	if connector.heuristic.LengthThreshold != core.DefaultQRLengthThreshold {
		t.Fatalf("expected default threshold untouched, got %d", connector.heuristic.LengthThreshold)
	}
	if connector.requestTimeout != defaultRequestTimeout {
		t.Fatalf("expected default request timeout untouched, got %s", connector.requestTimeout)
	}
}
