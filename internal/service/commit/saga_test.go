package commit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
)

func TestSaga_CompensateReverseOrder(t *testing.T) {
	s := NewSaga(10, logger.Nop(), metrics.Nop())
	var ran []string
	for _, k := range []string{"a", "b", "c"} {
		k := k
		require.NoError(t, s.Add(k, func(context.Context) error {
			ran = append(ran, k)
			return nil
		}))
	}

	s.Release("b")
	failed := s.Compensate(context.Background())

	assert.Equal(t, 0, failed)
	assert.Equal(t, []string{"c", "a"}, ran)
	assert.Empty(t, s.Pending())
}

func TestSaga_FailuresDoNotStopCompensation(t *testing.T) {
	s := NewSaga(10, logger.Nop(), metrics.Nop())
	var ran []string
	require.NoError(t, s.Add("a", func(context.Context) error { ran = append(ran, "a"); return nil }))
	require.NoError(t, s.Add("b", func(context.Context) error { return errors.New("gone wrong") }))

	failed := s.Compensate(context.Background())

	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"a"}, ran)
}

func TestSaga_Bounded(t *testing.T) {
	s := NewSaga(2, logger.Nop(), metrics.Nop())
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add("a", noop))
	require.NoError(t, s.Add("b", noop))
	assert.ErrorIs(t, s.Add("c", noop), ErrTooManyCompensations)

	s.Release("a")
	assert.NoError(t, s.Add("c", noop))
	assert.Equal(t, []string{"b", "c"}, s.Pending())
}

func TestSaga_CompensateRunsOnCancelledContext(t *testing.T) {
	s := NewSaga(0, logger.Nop(), metrics.Nop())
	var sawErr error
	require.NoError(t, s.Add("a", func(ctx context.Context) error {
		sawErr = ctx.Err()
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Compensate(ctx)

	assert.NoError(t, sawErr)
}
