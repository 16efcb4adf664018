package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bc-adapter/internal/metrics"
)

// ErrDecode is wrapped by DoJSON when a 2xx response body cannot be decoded into out.
var ErrDecode = errors.New("decode failed")

// Executor performs a single HTTP exchange with status mapping, JSON decoding,
// logging and request metrics. It never retries.
type Executor struct {
	logger       *zap.Logger
	http         *http.Client
	venueTag     string
	errorHandler func(resp *http.Response, body []byte) error
}

// New creates an Executor. errorHandler is called on non-2xx responses to produce a
// venue-specific error. If nil, a default error is returned.
func New(
	logger *zap.Logger,
	httpClient *http.Client,
	venueTag string,
	errorHandler func(resp *http.Response, body []byte) error,
) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Executor{
		logger:       logger,
		http:         httpClient,
		venueTag:     venueTag,
		errorHandler: errorHandler,
	}
}

// DoJSON executes req once and JSON-decodes a 2xx response into out.
// endpoint is a short label used for logs and metrics.
func (e *Executor) DoJSON(ctx context.Context, req *http.Request, endpoint string, out any) error {
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := e.http.Do(req)
	if err != nil {
		metrics.IncRequest(endpoint, req.Method, "error")
		e.logger.Warn(e.venueTag+".http_failed",
			zap.String("endpoint", endpoint),
			zap.String("url", req.URL.String()),
			zap.Error(err))
		return fmt.Errorf("%s %s: %w", e.venueTag, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	metrics.ObserveDuration(metrics.RequestDuration, start, endpoint, req.Method)
	metrics.IncRequest(endpoint, req.Method, strconv.Itoa(resp.StatusCode))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", e.venueTag, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.logger.Warn(e.venueTag+".http_status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("url", req.URL.String()),
			zap.Duration("latency", elapsed))
		if e.errorHandler != nil {
			return e.errorHandler(resp, body)
		}
		return fmt.Errorf("%s returned %d", e.venueTag, resp.StatusCode)
	}

	if out != nil {
		if len(body) == 0 {
			return fmt.Errorf("%w: empty body", ErrDecode)
		}
		if err := json.Unmarshal(body, out); err != nil {
			e.logger.Warn(e.venueTag+".decode_failed",
				zap.Error(err),
				zap.String("url", req.URL.String()),
				zap.Int("body_bytes", len(body)))
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
	}

	e.logger.Debug(e.venueTag+".http_success",
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed))

	return nil
}
