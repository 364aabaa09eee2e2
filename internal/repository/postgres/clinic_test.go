package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestClinicCreate_ReturnsLegacyIDFromSequence(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClinicRepository(db)

	clinic := &model.ClinicProfile{ID: uuid.New(), Name: "Seoul Skin"}

	mock.ExpectQuery(`INSERT INTO hospitals`).
		WithArgs(clinic.ID, "Seoul Skin", "", "", "", "", "", "", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id_old", "version"}).AddRow(int64(1042), 1))

	err := repo.Create(context.Background(), clinic)

	require.NoError(t, err)
	assert.Equal(t, int64(1042), clinic.LegacyID)
	assert.Equal(t, 1, clinic.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClinicGet_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClinicRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM hospitals WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	clinic, err := repo.Get(context.Background(), id)

	assert.Nil(t, clinic)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClinicGet_ScansEmbeddedColumns(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClinicRepository(db)
	id := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "id_old", "name", "email", "phone",
		"kakao_talk", "line", "wechat", "whatsapp", "telegram",
		"road_address", "road_address_en", "lot_address", "lot_address_en",
		"address_detail", "directions", "latitude", "longitude", "region_code",
		"thumbnail_url", "gallery", "version", "created_at", "updated_at",
	}).AddRow(
		id.String(), int64(7), "Seoul Skin", "a@b.kr", "02-000",
		"kakao", "", "", "", "",
		"Teheran-ro 1", "", "", "",
		"3F", "", nil, nil, 11,
		"https://cdn/x.png", "{a.png,b.png}", 3, now, now,
	)
	mock.ExpectQuery(`SELECT .* FROM hospitals`).WithArgs(id).WillReturnRows(rows)

	clinic, err := repo.Get(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, "kakao", clinic.KakaoTalk)
	assert.Equal(t, "Teheran-ro 1", clinic.RoadAddress)
	assert.Equal(t, []string{"a.png", "b.png"}, []string(clinic.Gallery))
	assert.Equal(t, 3, clinic.Version)
	assert.Nil(t, clinic.Latitude)
}

func TestClinicUpdateBasicInfo_BumpsVersion(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClinicRepository(db)
	clinic := &model.ClinicProfile{ID: uuid.New(), Name: "New Name", Version: 4}

	mock.ExpectQuery(`UPDATE hospitals`).
		WithArgs("New Name", "", "", "", "", "", "", "", sqlmock.AnyArg(), clinic.ID, 4).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(5))

	require.NoError(t, repo.UpdateBasicInfo(context.Background(), clinic))
	assert.Equal(t, 5, clinic.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClinicUpdateMedia_StaleVersionIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClinicRepository(db)
	clinic := &model.ClinicProfile{ID: uuid.New(), Version: 2}

	mock.ExpectQuery(`UPDATE hospitals`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	err := repo.UpdateMedia(context.Background(), clinic)

	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.Equal(t, 2, clinic.Version)
}

func TestClinicUpdateAddress_DriverErrorIsWrapped(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClinicRepository(db)
	boom := errors.New("connection reset")

	mock.ExpectQuery(`UPDATE hospitals`).WillReturnError(boom)

	err := repo.UpdateAddress(context.Background(), &model.ClinicProfile{ID: uuid.New()})

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, repository.ErrVersionConflict)
}

func TestClinicUpdateDetails_MissingRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClinicRepository(db)

	mock.ExpectExec(`UPDATE hospital_details`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateDetails(context.Background(), &model.ClinicDetails{HospitalID: uuid.New()})

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestClinicGetDetails_ScansConsent(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClinicRepository(db)
	id := uuid.New()

	rows := sqlmock.NewRows([]string{
		"hospital_id", "introduction", "introduction_en", "social_consent",
		"available_languages", "misc_notes", "updated_at",
	}).AddRow(id.String(), "hello", "", true, "{ko,en}", "", time.Now())
	mock.ExpectQuery(`FROM hospital_details`).WithArgs(id).WillReturnRows(rows)

	details, err := repo.GetDetails(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, model.ConsentAgreed, details.SocialConsent)
	assert.Equal(t, []string{"ko", "en"}, []string(details.AvailableLanguages))
}
