package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bc-adapter/internal/bc"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisWithClient(rdb, 10*time.Minute, zap.NewNop()), mr
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		TenantID: "Tenant-1",
		Company:  "My Company",
		Customers: []bc.Customer{
			{No: "1001", Name: "Acme", CreditLimitLCY: decimal.RequireFromString("2500.75")},
			{No: "1002", Name: "Globex"},
		},
		FetchedAt: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
	}
}

// --- SaveCustomers / LoadCustomers ---

func TestSaveAndLoadCustomers(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.SaveCustomers(context.Background(), sampleSnapshot()))

	assert.True(t, mr.Exists("bc:customers:tenant-1:my company"))
	assert.Equal(t, 10*time.Minute, mr.TTL("bc:customers:tenant-1:my company"))

	snap, err := store.LoadCustomers(context.Background(), "tenant-1", "My Company")
	require.NoError(t, err)
	require.Len(t, snap.Customers, 2)
	assert.Equal(t, "1001", snap.Customers[0].No)
	assert.True(t, decimal.RequireFromString("2500.75").Equal(snap.Customers[0].CreditLimitLCY))
	assert.Equal(t, "Globex", snap.Customers[1].Name)
	assert.True(t, snap.FetchedAt.Equal(sampleSnapshot().FetchedAt))
}

func TestSaveCustomers_StampsFetchedAt(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	snap := sampleSnapshot()
	snap.FetchedAt = time.Time{}
	require.NoError(t, store.SaveCustomers(context.Background(), snap))

	got, err := store.LoadCustomers(context.Background(), snap.TenantID, snap.Company)
	require.NoError(t, err)
	assert.False(t, got.FetchedAt.IsZero())
}

func TestLoadCustomers_Miss(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	_, err := store.LoadCustomers(context.Background(), "tenant-1", "Nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadCustomers_Expired(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.SaveCustomers(context.Background(), sampleSnapshot()))
	mr.FastForward(11 * time.Minute)

	_, err := store.LoadCustomers(context.Background(), "tenant-1", "My Company")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetJSON_CorruptValue(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, mr.Set("bc:customers:tenant-1:my company", "{broken"))

	_, err := store.LoadCustomers(context.Background(), "tenant-1", "My Company")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

// --- HealthCheck Tests ---

func TestHealthCheck_Success(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.HealthCheck(context.Background()))
}

func TestHealthCheck_RedisNil(t *testing.T) {
	store := &RedisStore{redis: nil}
	err := store.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis not initialized")
}

func TestHealthCheck_RedisDown(t *testing.T) {
	store, mr := newTestStore(t)

	// Close miniredis to simulate failure
	mr.Close()

	err := store.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

// --- Constructor / Close ---

func TestNewRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store, err := NewRedis(mr.Addr(), 0, "", time.Minute, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedis(addr, 0, "", time.Minute, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestClose_NilClient(t *testing.T) {
	store := &RedisStore{}
	require.NoError(t, store.Close())
}
