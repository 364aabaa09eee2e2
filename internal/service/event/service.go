package event

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/messaging"
)

const (
	maxRetries = 3
	retryDelay = 200 * time.Millisecond
)

// EventService publishes domain events on the broker. Delivery is best
// effort: a failure after the last retry is returned for logging only.
type EventService struct {
	broker     messaging.Publisher
	logger     *logger.Logger
	retryDelay time.Duration
}

func NewEventService(broker messaging.Publisher, logger *logger.Logger) *EventService {
	return &EventService{broker: broker, logger: logger, retryDelay: retryDelay}
}

func (s *EventService) Emit(ctx context.Context, eventType string, payload interface{}) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = s.broker.Publish(ctx, eventType, payload); err == nil {
			s.logger.Debug("event published", "event_type", eventType, "attempt", attempt)
			return nil
		}
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("publish %s: %w", eventType, ctx.Err())
		case <-time.After(s.retryDelay * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("publish %s after %d attempts: %w", eventType, maxRetries, err)
}
