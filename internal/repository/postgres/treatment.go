package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
)

type treatmentRepository struct {
	BaseRepository
}

func NewTreatmentRepository(db *sqlx.DB) repository.TreatmentRepository {
	return &treatmentRepository{NewBaseRepository(db)}
}

func (r *treatmentRepository) FindByCodes(ctx context.Context, codes []int) ([]*model.Treatment, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	query := `SELECT id, code, name FROM treatments WHERE code = ANY($1) ORDER BY code`

	codes64 := make([]int64, len(codes))
	for i, c := range codes {
		codes64[i] = int64(c)
	}

	var treatments []*model.Treatment
	if err := r.db.SelectContext(ctx, &treatments, query, pq.Array(codes64)); err != nil {
		return nil, fmt.Errorf("failed to find treatments: %w", err)
	}
	return treatments, nil
}

func (r *treatmentRepository) ListOfferings(ctx context.Context, hospitalID uuid.UUID) ([]*model.TreatmentOffering, error) {
	query := `
		SELECT ht.id, ht.hospital_id, ht.treatment_id, t.code, ht.option_label,
			ht.price, ht.discount_price, ht.price_visible, ht.misc_notes
		FROM hospital_treatments ht
		LEFT JOIN treatments t ON t.id = ht.treatment_id
		WHERE ht.hospital_id = $1
		ORDER BY t.code NULLS LAST, ht.option_label
	`
	var offerings []*model.TreatmentOffering
	if err := r.db.SelectContext(ctx, &offerings, query, hospitalID); err != nil {
		return nil, fmt.Errorf("failed to list treatment offerings: %w", err)
	}
	return offerings, nil
}

func (r *treatmentRepository) ReplaceOfferings(ctx context.Context, hospitalID uuid.UUID, offerings []*model.TreatmentOffering) error {
	insert := `
		INSERT INTO hospital_treatments (
			id, hospital_id, treatment_id, option_label, price, discount_price,
			price_visible, misc_notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM hospital_treatments WHERE hospital_id = $1`, hospitalID); err != nil {
			return fmt.Errorf("failed to clear treatment offerings: %w", err)
		}
		for _, o := range offerings {
			if o.ID == uuid.Nil {
				o.ID = uuid.New()
			}
			o.HospitalID = hospitalID
			_, err := tx.ExecContext(ctx, insert,
				o.ID,
				o.HospitalID,
				o.TreatmentID,
				o.OptionLabel,
				o.Price,
				o.DiscountPrice,
				o.PriceVisible,
				o.MiscNotes,
			)
			if err != nil {
				return fmt.Errorf("failed to insert treatment offering: %w", err)
			}
		}
		return nil
	})
}
