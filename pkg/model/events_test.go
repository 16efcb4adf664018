package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	payload := CustomersSynced{
		Company:    "My Company",
		Count:      2,
		CustomerNo: []string{"1001", "1002"},
		FetchedAt:  time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
	}

	env, err := NewEnvelope("tenant-1", EventCustomersSynced, payload)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, env.ID)
	assert.NotEqual(t, uuid.Nil, env.CorrelationID)
	assert.NotEqual(t, env.ID, env.CorrelationID)
	assert.Equal(t, "tenant-1", env.TenantID)
	assert.Equal(t, EventCustomersSynced, env.EventType)
	assert.Equal(t, "v1", env.Version)
	assert.False(t, env.Timestamp.IsZero())

	var got CustomersSynced
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, payload.CustomerNo, got.CustomerNo)
}

func TestNewEnvelope_UnmarshalablePayload(t *testing.T) {
	_, err := NewEnvelope("tenant-1", "x", make(chan int))
	require.Error(t, err)
}
