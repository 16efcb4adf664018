package api

import (
	"errors"
	"time"

	"github.com/Checker-Finance/bc-adapter/internal/bc"
	"github.com/Checker-Finance/bc-adapter/internal/store"
)

// Snapshot sources reported in CustomersResponse.
const (
	SourceCache = "cache"
	SourceLive  = "live"
)

// CustomersResponse is the body returned by the customers endpoint.
type CustomersResponse struct {
	TenantID  string        `json:"tenantId"`
	Company   string        `json:"company"`
	Source    string        `json:"source"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Count     int           `json:"count"`
	Customers []bc.Customer `json:"customers"`
}

// ErrorResponse carries a failure and, for upstream HTTP errors, the upstream status.
type ErrorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

func newCustomersResponse(snap *store.Snapshot, source string) CustomersResponse {
	customers := snap.Customers
	if customers == nil {
		customers = []bc.Customer{}
	}
	return CustomersResponse{
		TenantID:  snap.TenantID,
		Company:   snap.Company,
		Source:    source,
		FetchedAt: snap.FetchedAt,
		Count:     len(customers),
		Customers: customers,
	}
}

func newErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error()}
	var statusErr *bc.StatusError
	if errors.As(err, &statusErr) {
		resp.UpstreamStatus = statusErr.StatusCode
	}
	return resp
}
