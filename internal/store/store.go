package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bc-adapter/internal/bc"
)

// ErrNotFound is returned when no snapshot exists for a tenant/company.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the last customer list fetched for one tenant and company.
type Snapshot struct {
	TenantID  string        `json:"tenant_id"`
	Company   string        `json:"company"`
	Customers []bc.Customer `json:"customers"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Store defines the contract for caching customer snapshots.
type Store interface {
	SaveCustomers(ctx context.Context, snap Snapshot) error
	LoadCustomers(ctx context.Context, tenantID, company string) (*Snapshot, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// RedisStore keeps snapshots in Redis with a fixed TTL.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(addr string, db int, password string, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       db,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisWithClient(rdb, ttl, logger), nil
}

// NewRedisWithClient wraps an existing Redis client.
func NewRedisWithClient(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{redis: rdb, ttl: ttl, logger: logger}
}

// customersKey builds the Redis key for a tenant/company snapshot.
func customersKey(tenantID, company string) string {
	return strings.ToLower(fmt.Sprintf("bc:customers:%s:%s", tenantID, company))
}

// SaveCustomers stores snap, replacing any previous snapshot.
func (s *RedisStore) SaveCustomers(ctx context.Context, snap Snapshot) error {
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now().UTC()
	}
	key := customersKey(snap.TenantID, snap.Company)
	if err := s.SetJSON(ctx, key, snap, s.ttl); err != nil {
		s.logger.Warn("store.save_customers_failed",
			zap.String("key", key),
			zap.Error(err))
		return err
	}
	return nil
}

// LoadCustomers returns the stored snapshot or ErrNotFound.
func (s *RedisStore) LoadCustomers(ctx context.Context, tenantID, company string) (*Snapshot, error) {
	var snap Snapshot
	if err := s.GetJSON(ctx, customersKey(tenantID, company), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SetJSON marshals value and stores it under key with ttl (0 = no expiry).
func (s *RedisStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

// GetJSON loads key into dest, returning ErrNotFound on a miss.
func (s *RedisStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// HealthCheck pings Redis.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}
