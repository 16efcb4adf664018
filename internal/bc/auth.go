package bc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Checker-Finance/bc-adapter/internal/metrics"
)

const (
	grantTypeClientCredentials = "client_credentials"
	// refreshKey is the singleflight key; one TokenManager caches exactly one token.
	refreshKey = "token"
)

// TokenManager fetches and caches an OAuth2 client-credentials token.
// The cached state is replaced only by a completed refresh, and concurrent
// callers that find it missing or expired share a single in-flight request.
type TokenManager struct {
	logger *zap.Logger
	client *http.Client
	cfg    ClientConfig
	now    func() time.Time

	mu    sync.Mutex
	state *TokenState
	group singleflight.Group
}

// NewTokenManager creates a new TokenManager for cfg's credentials.
func NewTokenManager(logger *zap.Logger, cfg ClientConfig) *TokenManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenManager{
		logger: logger,
		client: &http.Client{Timeout: 10 * time.Second},
		cfg:    cfg,
		now:    time.Now,
	}
}

// Token returns a valid bearer token, refreshing it first when none is held
// or the held one is at or past its expiry.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if token, ok := m.cached(); ok {
		return token, nil
	}

	// The refresh outlives a cancelled caller so that other waiters still get a result.
	ch := m.group.DoChan(refreshKey, func() (any, error) {
		if token, ok := m.cached(); ok {
			return token, nil
		}
		state, err := m.refresh(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		m.mu.Lock()
		m.state = state
		m.mu.Unlock()
		return state.AccessToken, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrTokenFetch, ctx.Err())
	}
}

// State returns a copy of the cached token state, if any.
func (m *TokenManager) State() (TokenState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return TokenState{}, false
	}
	return *m.state, true
}

// Invalidate drops the cached token so the next call refreshes.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.state = nil
	m.mu.Unlock()
}

func (m *TokenManager) cached() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.ValidAt(m.now()) {
		return m.state.AccessToken, true
	}
	return "", false
}

// refresh performs the token exchange and builds the next TokenState.
func (m *TokenManager) refresh(ctx context.Context) (*TokenState, error) {
	start := time.Now()
	resp, err := m.fetchToken(ctx)
	metrics.ObserveDuration(metrics.TokenRefreshDuration, start)
	if err != nil {
		metrics.IncTokenRefresh("error")
		m.logger.Warn("bc.auth.token_fetch_failed",
			zap.String("client_id", m.cfg.ClientID),
			zap.String("token_url", m.cfg.TokenURL),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrTokenFetch, err)
	}
	metrics.IncTokenRefresh("ok")

	issued := m.now()
	state := &TokenState{
		AccessToken:           resp.AccessToken,
		IssuedAt:              issued,
		ExpiresAt:             issued.Add(time.Duration(resp.ExpiresIn) * time.Second),
		RefreshToken:          resp.RefreshToken,
		RefreshTokenExpiresIn: int64(resp.RefreshTokenExpiresIn),
	}
	if resp.RefreshTokenExpiresIn > 0 {
		state.RefreshTokenExpiresAt = issued.Add(time.Duration(resp.RefreshTokenExpiresIn) * time.Second)
	}

	m.logger.Info("bc.auth.token_refreshed",
		zap.String("client_id", m.cfg.ClientID),
		zap.Int64("expires_in_sec", int64(resp.ExpiresIn)),
		zap.Time("expires_at", state.ExpiresAt))

	return state, nil
}

// fetchToken posts the client-credentials form to the token endpoint.
func (m *TokenManager) fetchToken(ctx context.Context) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", grantTypeClientCredentials)
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", m.cfg.ClientSecret)
	form.Set("scope", m.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError("token", resp, body)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned empty access_token")
	}

	return &tokenResp, nil
}
