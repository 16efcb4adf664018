package bc

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// mockTransport is an http.RoundTripper that delegates to a handler function.
type mockTransport struct {
	fn func(*http.Request) (*http.Response, error)
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.fn(req)
}

// jsonResponse builds a fake *http.Response with the given status and JSON body.
func jsonResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testCfg() ClientConfig {
	return ClientConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scope:        "https://api.businesscentral.dynamics.com/.default",
		TokenURL:     "https://login.test/tenant-1/oauth2/v2.0/token",
		TenantID:     "tenant-1",
	}
}

// newTokenManagerWithTransport creates a TokenManager with a custom HTTP transport and clock.
func newTokenManagerWithTransport(t *testing.T, clock *fakeClock, fn func(*http.Request) (*http.Response, error)) *TokenManager {
	t.Helper()
	tm := NewTokenManager(zap.NewNop(), testCfg())
	tm.client = &http.Client{Transport: &mockTransport{fn: fn}}
	tm.now = clock.Now
	return tm
}

// writeJSON encodes v as JSON into w.
func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic("test helper writeJSON: " + err.Error())
	}
}

// mockBC is an httptest server standing in for both the token endpoint
// (POST /token) and the OData API (everything else).
type mockBC struct {
	*httptest.Server

	tokenCalls    atomic.Int32
	customerCalls atomic.Int32

	mu            sync.Mutex
	lastURI       string
	lastAuth      string
	customers     func(w http.ResponseWriter, r *http.Request)
	tokenResponse map[string]any
}

func newMockBC(t *testing.T) *mockBC {
	t.Helper()
	m := &mockBC{
		tokenResponse: map[string]any{"access_token": "T", "expires_in": 3600},
		customers: func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"value":[{"No":"1001","Customer_Name":"Acme"}]}`))
		},
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/token" {
			m.tokenCalls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			writeJSON(w, m.tokenResponse)
			return
		}
		m.customerCalls.Add(1)
		m.mu.Lock()
		m.lastURI = r.RequestURI
		m.lastAuth = r.Header.Get("Authorization")
		handler := m.customers
		m.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockBC) setCustomers(h func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	m.customers = h
	m.mu.Unlock()
}

func (m *mockBC) config() ClientConfig {
	cfg := testCfg()
	cfg.BaseURL = m.URL
	cfg.TokenURL = m.URL + "/token"
	return cfg
}

func (m *mockBC) last() (uri, auth string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastURI, m.lastAuth
}
