package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any env vars that would override defaults
	envVars := []string{
		"SERVICE_NAME", "ENV", "LOG_LEVEL", "PORT",
		"BC_SCOPE", "BC_SANDBOX", "BC_COMPANY", "BC_HTTP_TIMEOUT",
		"BC_SECRETS_TENANT", "REDIS_ADDR", "REDIS_DB", "SNAPSHOT_TTL",
		"NATS_URL", "SYNC_SUBJECT", "SYNC_INTERVAL",
		"HTTP_READ_TIMEOUT", "HTTP_BODY_LIMIT",
	}
	for _, key := range envVars {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ServiceName != "bc-adapter" {
		t.Errorf("expected ServiceName=bc-adapter, got %s", cfg.ServiceName)
	}
	if cfg.Env != "dev" {
		t.Errorf("expected Env=dev, got %s", cfg.Env)
	}
	if cfg.Port != 9040 {
		t.Errorf("expected Port=9040, got %d", cfg.Port)
	}
	if cfg.BCScope != "https://api.businesscentral.dynamics.com/.default" {
		t.Errorf("unexpected BCScope %s", cfg.BCScope)
	}
	if cfg.BCSandbox {
		t.Errorf("expected BCSandbox=false")
	}
	if cfg.BCCompany != "" {
		t.Errorf("expected empty BCCompany, got %s", cfg.BCCompany)
	}
	if cfg.BCHTTPTimeout != 30*time.Second {
		t.Errorf("expected BCHTTPTimeout=30s, got %v", cfg.BCHTTPTimeout)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected RedisAddr=localhost:6379, got %s", cfg.RedisAddr)
	}
	if cfg.SnapshotTTL != 15*time.Minute {
		t.Errorf("expected SnapshotTTL=15m, got %v", cfg.SnapshotTTL)
	}
	if cfg.NATSURL != "" {
		t.Errorf("expected NATS disabled by default, got %s", cfg.NATSURL)
	}
	if cfg.SyncInterval != 0 {
		t.Errorf("expected SyncInterval=0, got %v", cfg.SyncInterval)
	}
	if cfg.SyncSubject != "evt.bc.customers_synced.v1" {
		t.Errorf("unexpected SyncSubject %s", cfg.SyncSubject)
	}
	if cfg.HTTPBodyLimit != 1*1024*1024 {
		t.Errorf("expected HTTPBodyLimit=1048576, got %d", cfg.HTTPBodyLimit)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "test-service")
	t.Setenv("ENV", "prod")
	t.Setenv("PORT", "8080")
	t.Setenv("BC_CLIENT_ID", "cid")
	t.Setenv("BC_TENANT_ID", "tenant-1")
	t.Setenv("BC_SANDBOX", "true")
	t.Setenv("BC_COMPANY", "CRONUS")
	t.Setenv("REDIS_DB", "5")
	t.Setenv("SYNC_INTERVAL", "5m")

	cfg := Load()

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName=test-service, got %s", cfg.ServiceName)
	}
	if cfg.Env != "prod" {
		t.Errorf("expected Env=prod, got %s", cfg.Env)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.Port)
	}
	if cfg.BCClientID != "cid" || cfg.BCTenantID != "tenant-1" {
		t.Errorf("unexpected BC credentials %s/%s", cfg.BCClientID, cfg.BCTenantID)
	}
	if !cfg.BCSandbox {
		t.Errorf("expected BCSandbox=true")
	}
	if cfg.BCCompany != "CRONUS" {
		t.Errorf("expected BCCompany=CRONUS, got %s", cfg.BCCompany)
	}
	if cfg.RedisDB != 5 {
		t.Errorf("expected RedisDB=5, got %d", cfg.RedisDB)
	}
	if cfg.SyncInterval != 5*time.Minute {
		t.Errorf("expected SyncInterval=5m, got %v", cfg.SyncInterval)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("FLAG_A", "1")
	t.Setenv("FLAG_B", "nope")
	t.Setenv("FLAG_C", "")

	if !GetEnvBool("FLAG_A", false) {
		t.Errorf("expected FLAG_A=true")
	}
	if !GetEnvBool("FLAG_B", true) {
		t.Errorf("invalid value should fall back to default")
	}
	if GetEnvBool("FLAG_C", false) {
		t.Errorf("empty value should fall back to default")
	}
}
