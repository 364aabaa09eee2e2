package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
)

const clinicColumns = `
	id, id_old, name, email, phone,
	kakao_talk, line, wechat, whatsapp, telegram,
	road_address, road_address_en, lot_address, lot_address_en,
	address_detail, directions, latitude, longitude, region_code,
	thumbnail_url, gallery, version, created_at, updated_at`

type clinicRepository struct {
	BaseRepository
}

func NewClinicRepository(db *sqlx.DB) repository.ClinicRepository {
	return &clinicRepository{NewBaseRepository(db)}
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.ClinicProfile, error) {
	query := `SELECT ` + clinicColumns + ` FROM hospitals WHERE id = $1`

	var clinic model.ClinicProfile
	if err := r.db.GetContext(ctx, &clinic, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	return &clinic, nil
}

// Create inserts the hospital row. The legacy id comes from the column's
// sequence default, never from a max+1 read.
func (r *clinicRepository) Create(ctx context.Context, clinic *model.ClinicProfile) error {
	query := `
		INSERT INTO hospitals (
			id, name, email, phone,
			kakao_talk, line, wechat, whatsapp, telegram,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING id_old, version
	`
	now := time.Now()
	clinic.CreatedAt = now
	clinic.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, query,
		clinic.ID,
		clinic.Name,
		clinic.Email,
		clinic.Phone,
		clinic.KakaoTalk,
		clinic.Line,
		clinic.WeChat,
		clinic.WhatsApp,
		clinic.Telegram,
		clinic.CreatedAt,
		clinic.UpdatedAt,
	).Scan(&clinic.LegacyID, &clinic.Version)
	if err != nil {
		return fmt.Errorf("failed to create clinic: %w", err)
	}
	return nil
}

func (r *clinicRepository) UpdateBasicInfo(ctx context.Context, clinic *model.ClinicProfile) error {
	query := `
		UPDATE hospitals
		SET name = $1, email = $2, phone = $3,
			kakao_talk = $4, line = $5, wechat = $6, whatsapp = $7, telegram = $8,
			version = version + 1, updated_at = $9
		WHERE id = $10 AND version = $11
		RETURNING version
	`
	clinic.UpdatedAt = time.Now()
	return r.updateVersioned(ctx, clinic, query,
		clinic.Name,
		clinic.Email,
		clinic.Phone,
		clinic.KakaoTalk,
		clinic.Line,
		clinic.WeChat,
		clinic.WhatsApp,
		clinic.Telegram,
		clinic.UpdatedAt,
		clinic.ID,
		clinic.Version,
	)
}

func (r *clinicRepository) UpdateAddress(ctx context.Context, clinic *model.ClinicProfile) error {
	query := `
		UPDATE hospitals
		SET road_address = $1, road_address_en = $2, lot_address = $3, lot_address_en = $4,
			address_detail = $5, directions = $6, latitude = $7, longitude = $8,
			region_code = $9, version = version + 1, updated_at = $10
		WHERE id = $11 AND version = $12
		RETURNING version
	`
	clinic.UpdatedAt = time.Now()
	return r.updateVersioned(ctx, clinic, query,
		clinic.RoadAddress,
		clinic.RoadAddressEn,
		clinic.LotAddress,
		clinic.LotAddressEn,
		clinic.Detail,
		clinic.Directions,
		clinic.Latitude,
		clinic.Longitude,
		clinic.RegionCode,
		clinic.UpdatedAt,
		clinic.ID,
		clinic.Version,
	)
}

func (r *clinicRepository) UpdateMedia(ctx context.Context, clinic *model.ClinicProfile) error {
	query := `
		UPDATE hospitals
		SET thumbnail_url = $1, gallery = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5
		RETURNING version
	`
	clinic.UpdatedAt = time.Now()
	return r.updateVersioned(ctx, clinic, query,
		clinic.ThumbnailURL,
		clinic.Gallery,
		clinic.UpdatedAt,
		clinic.ID,
		clinic.Version,
	)
}

// updateVersioned runs a compare-and-set update and stores the new version.
func (r *clinicRepository) updateVersioned(ctx context.Context, clinic *model.ClinicProfile, query string, args ...interface{}) error {
	var version int
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrVersionConflict
		}
		return fmt.Errorf("failed to update clinic: %w", err)
	}
	clinic.Version = version
	return nil
}

func (r *clinicRepository) GetDetails(ctx context.Context, hospitalID uuid.UUID) (*model.ClinicDetails, error) {
	query := `
		SELECT hospital_id, introduction, introduction_en, social_consent,
			available_languages, misc_notes, updated_at
		FROM hospital_details
		WHERE hospital_id = $1
	`
	var details model.ClinicDetails
	if err := r.db.GetContext(ctx, &details, query, hospitalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get clinic details: %w", err)
	}
	return &details, nil
}

func (r *clinicRepository) CreateDetails(ctx context.Context, details *model.ClinicDetails) error {
	query := `
		INSERT INTO hospital_details (
			hospital_id, introduction, introduction_en, social_consent,
			available_languages, misc_notes, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	details.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		details.HospitalID,
		details.Introduction,
		details.IntroductionEn,
		details.SocialConsent,
		details.AvailableLanguages,
		details.MiscNotes,
		details.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clinic details: %w", err)
	}
	return nil
}

func (r *clinicRepository) UpdateDetails(ctx context.Context, details *model.ClinicDetails) error {
	query := `
		UPDATE hospital_details
		SET introduction = $1, introduction_en = $2, social_consent = $3,
			available_languages = $4, misc_notes = $5, updated_at = $6
		WHERE hospital_id = $7
	`
	details.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query,
		details.Introduction,
		details.IntroductionEn,
		details.SocialConsent,
		details.AvailableLanguages,
		details.MiscNotes,
		details.UpdatedAt,
		details.HospitalID,
	)
	if err != nil {
		return fmt.Errorf("failed to update clinic details: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
