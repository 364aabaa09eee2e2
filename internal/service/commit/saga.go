package commit

import (
	"context"
	"errors"
	"sync"

	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
)

// ErrTooManyCompensations is returned by Add once the saga is full.
var ErrTooManyCompensations = errors.New("too many pending compensations")

type compensation struct {
	key  string
	undo func(ctx context.Context) error
}

// Saga collects the undo actions of one commit attempt. An action is
// released once its effect is owned by a persisted row; whatever remains
// when the attempt fails is undone in reverse order.
type Saga struct {
	mu      sync.Mutex
	max     int
	entries []compensation
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewSaga(max int, logger *logger.Logger, m *metrics.Metrics) *Saga {
	return &Saga{max: max, logger: logger, metrics: m}
}

func (s *Saga) Add(key string, undo func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.max > 0 && len(s.entries) >= s.max {
		return ErrTooManyCompensations
	}
	s.entries = append(s.entries, compensation{key: key, undo: undo})
	return nil
}

// Release drops every pending action registered under key.
func (s *Saga) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, c := range s.entries {
		if c.key != key {
			kept = append(kept, c)
		}
	}
	s.entries = kept
}

// Pending lists the keys still to be undone, oldest first.
func (s *Saga) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.entries))
	for i, c := range s.entries {
		keys[i] = c.key
	}
	return keys
}

// Compensate runs the pending actions newest first. Failures are logged and
// counted; they never reach the caller. It returns the number that failed.
func (s *Saga) Compensate(ctx context.Context) int {
	s.mu.Lock()
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	// The request may already be cancelled; cleanup still has to run.
	ctx = context.WithoutCancel(ctx)

	failed := 0
	for i := len(entries) - 1; i >= 0; i-- {
		c := entries[i]
		if err := c.undo(ctx); err != nil {
			failed++
			s.logger.Error(err, "compensation failed", "key", c.key)
			s.metrics.Compensations.WithLabelValues("error").Inc()
			continue
		}
		s.metrics.Compensations.WithLabelValues("success").Inc()
	}
	if len(entries) > 0 {
		s.logger.Warn("compensated failed commit", "actions", len(entries), "failed", failed)
	}
	return failed
}
