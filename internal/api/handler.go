package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bc-adapter/internal/bc"
	"github.com/Checker-Finance/bc-adapter/internal/store"
)

const requestIDHeader = "X-Request-ID"

// CustomerLister defines the client operation used by the handler.
type CustomerLister interface {
	ListCustomers(ctx context.Context, company string) ([]bc.Customer, error)
}

// CustomersHandler serves Business Central customer lists, preferring the
// cached snapshot unless a refresh is requested.
type CustomersHandler struct {
	logger         *zap.Logger
	client         CustomerLister
	store          store.Store
	tenantID       string
	defaultCompany string
}

// NewCustomersHandler creates a new CustomersHandler. st may be nil.
func NewCustomersHandler(logger *zap.Logger, client CustomerLister, st store.Store, tenantID, defaultCompany string) *CustomersHandler {
	if defaultCompany == "" {
		defaultCompany = bc.DefaultCompany
	}
	return &CustomersHandler{
		logger:         logger,
		client:         client,
		store:          st,
		tenantID:       tenantID,
		defaultCompany: defaultCompany,
	}
}

// ListCustomers handles GET /api/v1/customers?company=...&refresh=true.
func (h *CustomersHandler) ListCustomers(c *fiber.Ctx) error {
	requestID := c.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDHeader, requestID)

	company := strings.TrimSpace(c.Query("company"))
	if company == "" {
		company = h.defaultCompany
	}
	ctx := c.UserContext()

	if h.store != nil && !c.QueryBool("refresh", false) {
		snap, err := h.store.LoadCustomers(ctx, h.tenantID, company)
		switch {
		case err == nil:
			return c.Status(fiber.StatusOK).JSON(newCustomersResponse(snap, SourceCache))
		case !errors.Is(err, store.ErrNotFound):
			h.logger.Warn("api.customers.snapshot_load_failed",
				zap.String("request_id", requestID),
				zap.String("company", company),
				zap.Error(err))
		}
	}

	customers, err := h.client.ListCustomers(ctx, company)
	if err != nil {
		h.logger.Error("api.customers.fetch_failed",
			zap.String("request_id", requestID),
			zap.String("company", company),
			zap.Error(err))
		return c.Status(statusFor(err)).JSON(newErrorResponse(err))
	}

	snap := &store.Snapshot{
		TenantID:  h.tenantID,
		Company:   company,
		Customers: customers,
		FetchedAt: time.Now().UTC(),
	}
	if h.store != nil {
		if err := h.store.SaveCustomers(ctx, *snap); err != nil {
			h.logger.Warn("api.customers.snapshot_save_failed",
				zap.String("request_id", requestID),
				zap.Error(err))
		}
	}

	return c.Status(fiber.StatusOK).JSON(newCustomersResponse(snap, SourceLive))
}

// statusFor maps client errors onto HTTP status codes.
func statusFor(err error) int {
	var statusErr *bc.StatusError
	switch {
	case errors.As(err, &statusErr),
		errors.Is(err, bc.ErrTokenFetch),
		errors.Is(err, bc.ErrUnexpectedShape):
		return fiber.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}
