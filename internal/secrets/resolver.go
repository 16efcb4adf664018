package secrets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bc-adapter/internal/bc"
	pkgsecrets "github.com/Checker-Finance/bc-adapter/pkg/secrets"
)

const (
	venue = "businesscentral"
	// DefaultScope is the client-credentials scope for the Business Central API.
	DefaultScope = "https://api.businesscentral.dynamics.com/.default"
)

// Resolver resolves Business Central client configuration from a secrets
// provider, caching results locally to reduce API calls.
//
// Secret naming convention: {env}/{tenant}/businesscentral
// Secret JSON format:
//
//	{"client_id": "...", "client_secret": "...", "tenant_id": "...",
//	 "token_url": "...", "scope": "...", "sandbox": "true", "company": "CRONUS"}
//
// token_url and scope are optional and default to the Azure AD v2 endpoint
// for tenant_id and DefaultScope.
type Resolver struct {
	logger   *zap.Logger
	env      string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[bc.ClientConfig]
}

// NewResolver constructs a config resolver.
func NewResolver(
	logger *zap.Logger,
	env string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[bc.ClientConfig],
) *Resolver {
	return &Resolver{
		logger:   logger,
		env:      env,
		provider: provider,
		cache:    cache,
	}
}

// cacheKey builds the in-memory cache key for a tenant.
func (r *Resolver) cacheKey(tenant string) string {
	return strings.ToLower(fmt.Sprintf("%s|%s", tenant, venue))
}

// secretName builds the secrets provider key for a tenant.
func (r *Resolver) secretName(tenant string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", r.env, tenant, venue))
}

// Resolve fetches or caches the ClientConfig for a given tenant.
func (r *Resolver) Resolve(ctx context.Context, tenant string) (bc.ClientConfig, error) {
	key := r.cacheKey(tenant)

	if cfg, ok := r.cache.Get(key); ok {
		return cfg, nil
	}

	secretName := r.secretName(tenant)
	secretMap, err := r.provider.GetSecret(ctx, secretName)
	if err != nil {
		r.logger.Warn("secrets.fetch_failed",
			zap.String("key", secretName),
			zap.Error(err))
		return bc.ClientConfig{}, fmt.Errorf("resolve client config for %q: %w", tenant, err)
	}

	cfg, err := parseClientConfig(secretMap)
	if err != nil {
		return bc.ClientConfig{}, fmt.Errorf("parse secret %q: %w", secretName, err)
	}

	r.cache.Put(key, cfg)

	r.logger.Info("secrets.client_config_resolved",
		zap.String("tenant", tenant),
		zap.Bool("sandbox", cfg.Sandbox))
	return cfg, nil
}

// Bust drops the cached config for tenant, e.g. after a credential rotation.
func (r *Resolver) Bust(tenant string) {
	r.cache.Bust(r.cacheKey(tenant))
}

// DiscoverTenants lists all tenants that have Business Central secrets configured.
// It searches for secrets matching "{env}/" and ending with "/businesscentral",
// then extracts the tenant from the middle segment.
func (r *Resolver) DiscoverTenants(ctx context.Context) ([]string, error) {
	prefix := strings.ToLower(r.env + "/")
	suffix := "/" + venue

	names, err := r.provider.ListSecrets(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("discover tenants: %w", err)
	}

	var tenants []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) || !strings.HasSuffix(lower, suffix) {
			continue
		}
		trimmed := strings.TrimSuffix(strings.TrimPrefix(lower, prefix), suffix)
		if trimmed != "" && !strings.Contains(trimmed, "/") {
			tenants = append(tenants, trimmed)
		}
	}

	r.logger.Info("secrets.tenants_discovered",
		zap.Int("count", len(tenants)),
		zap.Strings("tenants", tenants))
	return tenants, nil
}

// parseClientConfig extracts a ClientConfig from the raw secret map.
func parseClientConfig(m map[string]string) (bc.ClientConfig, error) {
	cfg := bc.ClientConfig{
		ClientID:     m["client_id"],
		ClientSecret: m["client_secret"],
		Scope:        m["scope"],
		TokenURL:     m["token_url"],
		TenantID:     m["tenant_id"],
		Company:      m["company"],
		BaseURL:      m["base_url"],
	}
	if cfg.ClientID == "" {
		return bc.ClientConfig{}, fmt.Errorf("missing required field 'client_id'")
	}
	if cfg.ClientSecret == "" {
		return bc.ClientConfig{}, fmt.Errorf("missing required field 'client_secret'")
	}
	if cfg.TenantID == "" {
		return bc.ClientConfig{}, fmt.Errorf("missing required field 'tenant_id'")
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL(cfg.TenantID)
	}
	if raw := m["sandbox"]; raw != "" {
		sandbox, err := strconv.ParseBool(raw)
		if err != nil {
			return bc.ClientConfig{}, fmt.Errorf("invalid field 'sandbox': %q", raw)
		}
		cfg.Sandbox = sandbox
	}
	return cfg, nil
}

// DefaultTokenURL returns the Azure AD v2 token endpoint for a tenant.
func DefaultTokenURL(tenantID string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/token"
}
