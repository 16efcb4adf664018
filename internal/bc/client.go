package bc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bc-adapter/internal/httpclient"
)

// Client wraps authenticated HTTP communication with one Business Central tenant.
type Client struct {
	logger *zap.Logger
	cfg    ClientConfig
	exec   *httpclient.Executor
	tokens *TokenManager
}

// Option customises a Client at construction.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	httpClient *http.Client
	now        func() time.Time
}

// WithLogger sets the logger used by the client and its token manager.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient replaces the HTTP client used for both token and API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New constructs a Client. It performs no I/O and does not validate the
// credentials; bad credentials surface on the first call.
func New(cfg ClientConfig, opts ...Option) *Client {
	o := options{
		logger:     zap.NewNop(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.now == nil {
		o.now = time.Now
	}

	tokens := NewTokenManager(o.logger, cfg)
	tokens.client = o.httpClient
	tokens.now = o.now

	exec := httpclient.New(o.logger, o.httpClient, "bc", func(resp *http.Response, body []byte) error {
		return newStatusError("customers", resp, body)
	})

	return &Client{
		logger: o.logger,
		cfg:    cfg,
		exec:   exec,
		tokens: tokens,
	}
}

// Config returns the configuration the client was built with.
func (c *Client) Config() ClientConfig {
	return c.cfg
}

// Tokens exposes the client's token manager.
func (c *Client) Tokens() *TokenManager {
	return c.tokens
}

// BuildURL returns the OData URL for path under the configured tenant.
// A single leading "/" is stripped; path is used verbatim otherwise, so any
// embedded values must already be escaped.
func (c *Client) BuildURL(path string) string {
	path = strings.TrimPrefix(path, "/")

	base := c.cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimSuffix(base, "/")

	env := ""
	if c.cfg.Sandbox {
		env = "/" + sandboxSegment
	}
	return fmt.Sprintf("%s/%s%s/%s/%s", base, c.cfg.TenantID, env, odataSegment, path)
}

// EnsureValidToken returns a bearer token that has not expired, fetching one if needed.
func (c *Client) EnsureValidToken(ctx context.Context) (string, error) {
	return c.tokens.Token(ctx)
}

// GetCustomers lists the customers of the configured company.
// GET /Company('{company}')/Customers
func (c *Client) GetCustomers(ctx context.Context) ([]Customer, error) {
	company := c.cfg.Company
	if company == "" {
		company = DefaultCompany
	}
	return c.ListCustomers(ctx, company)
}

// ListCustomers lists the customers of the given company.
// GET /Company('{company}')/Customers
func (c *Client) ListCustomers(ctx context.Context, company string) ([]Customer, error) {
	var resp customerList
	if err := c.getJSON(ctx, CompanyPath(company)+"/Customers", "customers", &resp); err != nil {
		return nil, err
	}

	if resp.Value == nil {
		return nil, fmt.Errorf("bc customers: %w: missing \"value\" array", ErrUnexpectedShape)
	}
	customers := *resp.Value
	for i, cust := range customers {
		if cust.No == "" {
			return nil, fmt.Errorf("bc customers: %w: entry %d has no \"No\"", ErrUnexpectedShape, i)
		}
	}

	c.logger.Debug("bc.customers_listed",
		zap.String("tenant_id", c.cfg.TenantID),
		zap.String("company", company),
		zap.Int("count", len(customers)))

	return customers, nil
}

// CompanyPath renders the OData entity key for a company, e.g.
// "My Company" → "Company('My%20Company')".
func CompanyPath(company string) string {
	quoted := strings.ReplaceAll(company, "'", "''")
	return "Company('" + url.PathEscape(quoted) + "')"
}

// getJSON performs an authenticated GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path, endpoint string, out any) error {
	u := c.BuildURL(path)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	setHeaders(req, token)

	err = c.exec.DoJSON(ctx, req, endpoint, out)
	if errors.Is(err, httpclient.ErrDecode) {
		return fmt.Errorf("bc %s: %w: %w", endpoint, ErrUnexpectedShape, err)
	}
	return err
}

// setHeaders sets required headers for Business Central API requests.
func setHeaders(req *http.Request, bearerToken string) {
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("Accept", "application/json")
}
