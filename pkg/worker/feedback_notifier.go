package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/messaging"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
)

type FeedbackNotifierConfig struct {
	Recipients    []string
	RetryAttempts int
	RetryDelay    time.Duration
}

// Mailer delivers the notice for one feedback note.
type Mailer interface {
	SendFeedbackNotice(ctx context.Context, to []string, evt model.FeedbackCreatedEvent) error
}

// FeedbackNotifier mails operator feedback to the support inbox as it is
// published on the broker.
type FeedbackNotifier struct {
	broker  messaging.Broker
	mailer  Mailer
	config  FeedbackNotifierConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewFeedbackNotifier(
	broker messaging.Broker,
	mailer Mailer,
	config FeedbackNotifierConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *FeedbackNotifier {
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay < 0 {
		panic("RetryDelay must not be negative")
	}

	return &FeedbackNotifier{
		broker:  broker,
		mailer:  mailer,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// Start blocks until ctx is done or the subscription closes.
func (n *FeedbackNotifier) Start(ctx context.Context) error {
	n.logger.Info("Starting feedback notifier", "recipients", len(n.config.Recipients))

	err := messaging.Consume(ctx, n.broker, model.EventFeedbackCreated, n.handle, func(err error) {
		n.logger.Error(err, "Failed to deliver feedback notice")
	})
	if err == context.Canceled {
		err = nil
	}
	n.logger.Info("Shutting down feedback notifier")
	return err
}

func (n *FeedbackNotifier) handle(ctx context.Context, payload []byte) error {
	var evt model.FeedbackCreatedEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		n.metrics.Notifications.WithLabelValues("malformed").Inc()
		return fmt.Errorf("failed to decode feedback event: %w", err)
	}
	if len(n.config.Recipients) == 0 {
		n.metrics.Notifications.WithLabelValues("skipped").Inc()
		return nil
	}

	err := retry(ctx, n.config.RetryAttempts, n.config.RetryDelay, func() error {
		return n.mailer.SendFeedbackNotice(ctx, n.config.Recipients, evt)
	})
	if err != nil {
		n.metrics.Notifications.WithLabelValues("failed").Inc()
		return fmt.Errorf("feedback %s: %w", evt.FeedbackID, err)
	}

	n.metrics.Notifications.WithLabelValues("sent").Inc()
	n.logger.Debug("feedback notice sent",
		"feedback_id", evt.FeedbackID.String(),
		"clinic_id", evt.ClinicID.String())
	return nil
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
