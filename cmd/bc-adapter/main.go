package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/bc-adapter/internal/api"
	"github.com/Checker-Finance/bc-adapter/internal/bc"
	"github.com/Checker-Finance/bc-adapter/internal/jobs"
	"github.com/Checker-Finance/bc-adapter/internal/publisher"
	internalsecrets "github.com/Checker-Finance/bc-adapter/internal/secrets"
	"github.com/Checker-Finance/bc-adapter/internal/store"
	"github.com/Checker-Finance/bc-adapter/pkg/config"
	"github.com/Checker-Finance/bc-adapter/pkg/logger"
	"github.com/Checker-Finance/bc-adapter/pkg/secrets"
	"github.com/Checker-Finance/bc-adapter/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [bc-adapter]...")

	// --- Business Central credentials ---
	stopCleaner := make(chan struct{})
	clientCfg, err := loadClientConfig(ctx, cfg, stopCleaner)
	if err != nil {
		logg.Fatalw("failed to load Business Central credentials", "error", err)
	}
	logg.Infow("business central client configured",
		"tenant", clientCfg.TenantID,
		"client_id", utils.MaskSecret(clientCfg.ClientID),
		"sandbox", clientCfg.Sandbox)

	// --- Business Central client ---
	bcClient := bc.New(clientCfg,
		bc.WithLogger(logg.Desugar()),
		bc.WithHTTPClient(&http.Client{Timeout: cfg.BCHTTPTimeout}),
	)

	// --- Store (Redis snapshots) ---
	st, err := store.NewRedis(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPass, cfg.SnapshotTTL, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- NATS publisher (optional) ---
	var (
		nc  *nats.Conn
		pub jobs.EventPublisher
	)
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "error", err)
		}
		pub = publisher.New(nc, cfg.SyncSubject, cfg.ServiceName, logg.Desugar())
	}

	// --- Customer sync job (optional) ---
	var syncJob *jobs.CustomerSync
	if cfg.SyncInterval > 0 {
		syncJob = jobs.NewCustomerSync(
			logg.Desugar(),
			bcClient,
			st,
			pub,
			clientCfg.TenantID,
			companyOrDefault(clientCfg.Company),
			cfg.SyncSubject,
			cfg.SyncInterval,
		)
		go syncJob.Start(ctx)
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	customersHandler := api.NewCustomersHandler(logg.Desugar(), bcClient, st, clientCfg.TenantID, clientCfg.Company)
	api.RegisterRoutes(app, nc, st, customersHandler)

	// Start HTTP server
	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[bc-adapter] running",
		"env", cfg.Env,
		"nats", cfg.NATSURL != "",
		"sync_interval", cfg.SyncInterval)

	<-ctx.Done()
	logg.Info("shutting down [bc-adapter]...")

	close(stopCleaner)
	if syncJob != nil {
		syncJob.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}

// loadClientConfig reads credentials from AWS Secrets Manager when
// BC_SECRETS_TENANT is set, otherwise from BC_* environment variables.
func loadClientConfig(ctx context.Context, cfg *config.Config, stopCleaner <-chan struct{}) (bc.ClientConfig, error) {
	if cfg.SecretsTenant == "" {
		clientCfg := bc.ClientConfig{
			ClientID:     cfg.BCClientID,
			ClientSecret: cfg.BCClientSecret,
			Scope:        cfg.BCScope,
			TokenURL:     cfg.BCTokenURL,
			TenantID:     cfg.BCTenantID,
			Sandbox:      cfg.BCSandbox,
			Company:      cfg.BCCompany,
			BaseURL:      cfg.BCBaseURL,
		}
		if clientCfg.TokenURL == "" && clientCfg.TenantID != "" {
			clientCfg.TokenURL = internalsecrets.DefaultTokenURL(clientCfg.TenantID)
		}
		return clientCfg, nil
	}

	provider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
	if err != nil {
		return bc.ClientConfig{}, fmt.Errorf("create AWS Secrets Manager provider: %w", err)
	}

	cache := secrets.NewCache[bc.ClientConfig](cfg.SecretsTTL)
	go cache.StartCleaner(cfg.CleanupFreq, stopCleaner)

	resolver := internalsecrets.NewResolver(logger.L(), cfg.Env, provider, cache)
	if tenants, err := resolver.DiscoverTenants(ctx); err != nil {
		logger.S().Warnw("failed to discover tenants from AWS Secrets Manager", "error", err)
	} else {
		logger.S().Infow("discovered Business Central tenants", "count", len(tenants), "tenants", tenants)
	}

	return resolver.Resolve(ctx, cfg.SecretsTenant)
}

func companyOrDefault(company string) string {
	if company == "" {
		return bc.DefaultCompany
	}
	return company
}
