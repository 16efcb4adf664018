package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bc-adapter/internal/bc"
	"github.com/Checker-Finance/bc-adapter/internal/metrics"
	"github.com/Checker-Finance/bc-adapter/internal/store"
	"github.com/Checker-Finance/bc-adapter/pkg/model"
)

// CustomerLister is the subset of *bc.Client used by the sync job.
type CustomerLister interface {
	ListCustomers(ctx context.Context, company string) ([]bc.Customer, error)
}

// EventPublisher publishes canonical envelopes.
type EventPublisher interface {
	PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error
}

// CustomerSync periodically fetches the customer list of one company, stores
// a snapshot and emits a NATS event. Store and publisher are optional.
type CustomerSync struct {
	logger    *zap.Logger
	client    CustomerLister
	store     store.Store
	publisher EventPublisher
	tenantID  string
	company   string
	subject   string
	interval  time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewCustomerSync constructs a background job that runs every interval.
func NewCustomerSync(
	logger *zap.Logger,
	client CustomerLister,
	st store.Store,
	pub EventPublisher,
	tenantID, company, subject string,
	interval time.Duration,
) *CustomerSync {
	return &CustomerSync{
		logger:    logger,
		client:    client,
		store:     st,
		publisher: pub,
		tenantID:  tenantID,
		company:   company,
		subject:   subject,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start runs one sync immediately, then one per interval until stopped.
func (s *CustomerSync) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("customer_sync.started",
		zap.String("company", s.company),
		zap.Duration("interval", s.interval))

	_ = s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		case <-s.stopCh:
			s.logger.Info("customer_sync.stopped (manual stop)")
			return
		case <-ctx.Done():
			s.logger.Info("customer_sync.stopped (context canceled)")
			return
		}
	}
}

// Stop halts the loop. It is safe to call more than once.
func (s *CustomerSync) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RunOnce executes one sync cycle. Store and publish failures are logged, not returned.
func (s *CustomerSync) RunOnce(ctx context.Context) error {
	start := time.Now()

	customers, err := s.client.ListCustomers(ctx, s.company)
	if err != nil {
		metrics.IncCustomerSync("error")
		s.logger.Error("customer_sync.fetch_failed",
			zap.String("company", s.company),
			zap.Error(err))
		return err
	}
	fetchedAt := time.Now().UTC()

	if s.store != nil {
		snap := store.Snapshot{
			TenantID:  s.tenantID,
			Company:   s.company,
			Customers: customers,
			FetchedAt: fetchedAt,
		}
		if err := s.store.SaveCustomers(ctx, snap); err != nil {
			s.logger.Warn("customer_sync.store_failed", zap.Error(err))
		}
	}

	if s.publisher != nil {
		s.publish(ctx, customers, fetchedAt, time.Since(start))
	}

	metrics.IncCustomerSync("ok")
	metrics.SetCustomersSynced(s.tenantID, s.company, len(customers))
	s.logger.Info("customer_sync.success",
		zap.String("company", s.company),
		zap.Int("count", len(customers)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *CustomerSync) publish(ctx context.Context, customers []bc.Customer, fetchedAt time.Time, took time.Duration) {
	numbers := make([]string, 0, len(customers))
	for _, c := range customers {
		numbers = append(numbers, c.No)
	}

	env, err := model.NewEnvelope(s.tenantID, model.EventCustomersSynced, model.CustomersSynced{
		Company:    s.company,
		Count:      len(customers),
		CustomerNo: numbers,
		FetchedAt:  fetchedAt,
		DurationMS: took.Milliseconds(),
	})
	if err != nil {
		s.logger.Warn("customer_sync.envelope_failed", zap.Error(err))
		return
	}
	if err := s.publisher.PublishEnvelope(ctx, s.subject, env); err != nil {
		s.logger.Warn("customer_sync.nats_publish_failed", zap.Error(err))
	}
}
