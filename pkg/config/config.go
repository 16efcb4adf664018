package config

import (
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the bc-adapter.
type Config struct {
	ServiceName string
	Env         string
	LogLevel    string
	Port        int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	HTTPBodyLimit    int

	// Business Central credentials. When SecretsTenant is set they are
	// resolved from AWS Secrets Manager instead. See internal/secrets/resolver.go.
	BCClientID     string
	BCClientSecret string
	BCScope        string
	BCTokenURL     string
	BCTenantID     string
	BCSandbox      bool
	BCCompany      string
	BCBaseURL      string
	BCHTTPTimeout  time.Duration
	SecretsTenant  string
	AWSRegion      string
	SecretsTTL     time.Duration
	CleanupFreq    time.Duration

	RedisAddr   string
	RedisDB     int
	RedisPass   string
	SnapshotTTL time.Duration

	NATSURL      string
	SyncSubject  string
	SyncInterval time.Duration // 0 disables the background sync job
}

// Load loads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:      GetEnv("SERVICE_NAME", "bc-adapter"),
		Env:              GetEnv("ENV", "dev"),
		LogLevel:         GetEnv("LOG_LEVEL", "info"),
		Port:             GetEnvInt("PORT", 9040),
		HTTPReadTimeout:  GetEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout: GetEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		HTTPIdleTimeout:  GetEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		HTTPBodyLimit:    GetEnvInt("HTTP_BODY_LIMIT", 1*1024*1024),

		BCClientID:     GetEnv("BC_CLIENT_ID", ""),
		BCClientSecret: GetEnv("BC_CLIENT_SECRET", ""),
		BCScope:        GetEnv("BC_SCOPE", "https://api.businesscentral.dynamics.com/.default"),
		BCTokenURL:     GetEnv("BC_TOKEN_URL", ""),
		BCTenantID:     GetEnv("BC_TENANT_ID", ""),
		BCSandbox:      GetEnvBool("BC_SANDBOX", false),
		BCCompany:      GetEnv("BC_COMPANY", ""),
		BCBaseURL:      GetEnv("BC_BASE_URL", ""),
		BCHTTPTimeout:  GetEnvDuration("BC_HTTP_TIMEOUT", 30*time.Second),
		SecretsTenant:  GetEnv("BC_SECRETS_TENANT", ""),
		AWSRegion:      GetEnv("AWS_REGION", "us-east-2"),
		SecretsTTL:     GetEnvDuration("SECRETS_CACHE_TTL", 24*time.Hour),
		CleanupFreq:    GetEnvDuration("SECRETS_CACHE_CLEANUP_FREQ", 10*time.Minute),

		RedisAddr:   GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     GetEnvInt("REDIS_DB", 0),
		RedisPass:   GetEnv("REDIS_PASS", ""),
		SnapshotTTL: GetEnvDuration("SNAPSHOT_TTL", 15*time.Minute),

		NATSURL:      GetEnv("NATS_URL", ""),
		SyncSubject:  GetEnv("SYNC_SUBJECT", "evt.bc.customers_synced.v1"),
		SyncInterval: GetEnvDuration("SYNC_INTERVAL", 0),
	}
}
