package taxonomy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
)

func TestResolveCodesToIDs(t *testing.T) {
	db := memory.NewDB()
	implant := &model.Treatment{ID: uuid.New(), Code: 101, Name: "Implant"}
	scaling := &model.Treatment{ID: uuid.New(), Code: 205, Name: "Scaling"}
	db.SeedCatalog(implant, scaling)
	m := metrics.Nop()
	r := NewResolver(memory.NewTreatmentRepository(db), logger.Nop(), m)

	ids, err := r.ResolveCodesToIDs(context.Background(), []int{205, 101, 999, 205})

	require.NoError(t, err)
	assert.Equal(t, map[int]uuid.UUID{101: implant.ID, 205: scaling.ID}, ids)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DroppedCodes))
	assert.Equal(t, []string{"treatments.FindByCodes"}, db.Calls())
}

func TestResolveCodesToIDs_Empty(t *testing.T) {
	db := memory.NewDB()
	r := NewResolver(memory.NewTreatmentRepository(db), logger.Nop(), metrics.Nop())

	ids, err := r.ResolveCodesToIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, db.Calls())
}

func TestResolveCodesToIDs_StoreError(t *testing.T) {
	db := memory.NewDB()
	db.FailOn("treatments.FindByCodes", errors.New("connection refused"))
	r := NewResolver(memory.NewTreatmentRepository(db), logger.Nop(), metrics.Nop())

	_, err := r.ResolveCodesToIDs(context.Background(), []int{1})

	assert.Equal(t, apperrors.KindStoreWrite, apperrors.KindOf(err))
}
