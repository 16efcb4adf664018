package publisher

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bc-adapter/internal/metrics"
	"github.com/Checker-Finance/bc-adapter/pkg/model"
)

// MsgPublisher is the subset of *nats.Conn used by Publisher.
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// Publisher wraps a NATS connection and publishes canonical event envelopes.
type Publisher struct {
	nc      MsgPublisher
	subject string
	service string
	logger  *zap.Logger
}

// New creates a Publisher. subject is used when PublishEnvelope is called without one.
func New(nc MsgPublisher, subject, service string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		nc:      nc,
		subject: subject,
		service: service,
		logger:  logger,
	}
}

// PublishEnvelope serializes and publishes env to subject (or the default subject).
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if subject == "" {
		subject = p.subject
	}
	if subject == "" {
		return errors.New("publisher: no subject")
	}

	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("publisher.marshal_failed",
			zap.String("subject", subject),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"tenant_id":      []string{env.TenantID},
		},
	}

	if err := p.nc.PublishMsg(msg); err != nil {
		metrics.IncNATSPublishError(subject)
		p.logger.Error("publisher.publish_failed",
			zap.String("subject", subject),
			zap.String("event_type", env.EventType),
			zap.String("tenant_id", env.TenantID),
			zap.Error(err))
		return err
	}

	p.logger.Info("publisher.publish_success",
		zap.String("subject", subject),
		zap.String("event_type", env.EventType),
		zap.String("tenant_id", env.TenantID))
	return nil
}
