package taxonomy

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-console/internal/repository"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
)

// Resolver translates treatment catalog codes to catalog ids.
type Resolver struct {
	treatments repository.TreatmentRepository
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewResolver(treatments repository.TreatmentRepository, logger *logger.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{treatments: treatments, logger: logger, metrics: m}
}

// ResolveCodesToIDs looks all codes up in one query. Codes with no catalog
// entry are left out of the result and logged.
func (r *Resolver) ResolveCodesToIDs(ctx context.Context, codes []int) (map[int]uuid.UUID, error) {
	unique := make([]int, 0, len(codes))
	seen := make(map[int]bool, len(codes))
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	sort.Ints(unique)

	ids := make(map[int]uuid.UUID, len(unique))
	if len(unique) == 0 {
		return ids, nil
	}

	found, err := r.treatments.FindByCodes(ctx, unique)
	if err != nil {
		return nil, apperrors.FromStore(fmt.Errorf("resolve treatment codes: %w", err))
	}
	for _, t := range found {
		ids[t.Code] = t.ID
	}

	var dropped []int
	for _, c := range unique {
		if _, ok := ids[c]; !ok {
			dropped = append(dropped, c)
		}
	}
	if len(dropped) > 0 {
		r.logger.Warn("dropping unknown treatment codes", "codes", dropped)
		r.metrics.DroppedCodes.Add(float64(len(dropped)))
	}
	return ids, nil
}
