package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventCustomersSynced is emitted after a customer list has been fetched and stored.
const EventCustomersSynced = "bc.customers_synced"

// Envelope is the canonical wrapper for events published by the adapter.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	TenantID      string          `json:"tenant_id"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// CustomersSynced is the payload of EventCustomersSynced.
type CustomersSynced struct {
	Company    string    `json:"company"`
	Count      int       `json:"count"`
	CustomerNo []string  `json:"customer_no"`
	FetchedAt  time.Time `json:"fetched_at"`
	DurationMS int64     `json:"duration_ms"`
}

// NewEnvelope wraps payload in a fresh envelope with new ids.
func NewEnvelope(tenantID, eventType string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		TenantID:      tenantID,
		EventType:     eventType,
		Version:       "v1",
		Timestamp:     time.Now().UTC(),
		Payload:       data,
	}, nil
}
