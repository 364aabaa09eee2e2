package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
)

func TestOperatorGetByExternalID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOperatorRepository(db)

	mock.ExpectQuery(`FROM admins`).WithArgs("ext-1").WillReturnError(sql.ErrNoRows)

	op, err := repo.GetByExternalID(context.Background(), "ext-1")

	assert.Nil(t, op)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOperatorLinkHospital(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOperatorRepository(db)
	opID, hospitalID := uuid.New(), uuid.New()

	mock.ExpectExec(`UPDATE admins`).
		WithArgs(hospitalID, sqlmock.AnyArg(), opID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.LinkHospital(context.Background(), opID, hospitalID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoctorDelete_ToleratesMissingRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewDoctorRepository(db)
	hospitalID, id := uuid.New(), uuid.New()

	mock.ExpectExec(`DELETE FROM hospital_doctors`).
		WithArgs(id, hospitalID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), hospitalID, id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoctorUpdate_MissingRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewDoctorRepository(db)

	mock.ExpectExec(`UPDATE hospital_doctors`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &model.Doctor{HospitalID: uuid.New()})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDoctorCreate_AssignsID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewDoctorRepository(db)
	doctor := &model.Doctor{HospitalID: uuid.New(), Name: "Dr. Kim", IsChief: true}

	mock.ExpectExec(`INSERT INTO hospital_doctors`).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), doctor))
	assert.NotEqual(t, uuid.Nil, doctor.ID)
	assert.False(t, doctor.CreatedAt.IsZero())
}

func TestBusinessHourCreate_RollsBackOnFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBusinessHourRepository(db)
	hospitalID := uuid.New()

	hours := []*model.BusinessHour{
		{HospitalID: hospitalID, DayOfWeek: 0, Status: model.HourStatusClosed},
		{HospitalID: hospitalID, DayOfWeek: 1, Status: model.HourStatusOpen, OpenTime: "09:00", CloseTime: "18:00"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO hospital_business_hours`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO hospital_business_hours`).WillReturnError(errors.New("duplicate"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), hours)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "day 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBusinessHourUpdate_ByDay(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBusinessHourRepository(db)
	hour := &model.BusinessHour{HospitalID: uuid.New(), DayOfWeek: 3, Status: model.HourStatusAsk}

	mock.ExpectExec(`UPDATE hospital_business_hours`).
		WithArgs("", "", model.HourStatusAsk, hour.HospitalID, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), hour))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTreatmentFindByCodes_EmptyInputSkipsQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTreatmentRepository(db)

	got, err := repo.FindByCodes(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTreatmentFindByCodes_SingleQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTreatmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name"}).
		AddRow(uuid.New().String(), int64(101), "Botox").
		AddRow(uuid.New().String(), int64(205), "Filler")
	mock.ExpectQuery(`SELECT id, code, name FROM treatments WHERE code = ANY\(\$1\)`).
		WithArgs("{101,205,999}").
		WillReturnRows(rows)

	got, err := repo.FindByCodes(context.Background(), []int{101, 205, 999})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 101, got[0].Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTreatmentReplaceOfferings(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTreatmentRepository(db)
	hospitalID := uuid.New()
	treatmentID := uuid.New()

	offerings := []*model.TreatmentOffering{
		{TreatmentID: &treatmentID, OptionLabel: "1 session", Price: 50000, PriceVisible: true},
		{MiscNotes: "ask at the desk"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM hospital_treatments`).WithArgs(hospitalID).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`INSERT INTO hospital_treatments`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO hospital_treatments`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceOfferings(context.Background(), hospitalID, offerings))
	for _, o := range offerings {
		assert.Equal(t, hospitalID, o.HospitalID)
		assert.NotEqual(t, uuid.Nil, o.ID)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTreatmentReplaceOfferings_RollbackKeepsOldRows(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTreatmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM hospital_treatments`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO hospital_treatments`).WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err := repo.ReplaceOfferings(context.Background(), uuid.New(), []*model.TreatmentOffering{{OptionLabel: "x"}})

	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackCreate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFeedbackRepository(db)
	note := &model.FeedbackNote{HospitalID: uuid.New(), Step: 3, Content: "hours look wrong"}

	mock.ExpectExec(`INSERT INTO hospital_feedback`).
		WithArgs(sqlmock.AnyArg(), note.HospitalID, 3, "hours look wrong", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), note))
	assert.NotEqual(t, uuid.Nil, note.ID)
}

func TestConsultationList_FiltersAndPages(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewConsultationRepository(db)
	hospitalID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM consultations WHERE hospital_id = \$1 AND status = \$2`).
		WithArgs(hospitalID, "new").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(31))
	mock.ExpectQuery(`FROM consultations WHERE hospital_id = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs(hospitalID, "new", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "hospital_id", "patient_name", "status"}).
			AddRow(uuid.New().String(), hospitalID.String(), "Lee", "new"))

	filters := &model.ConsultationFilters{
		Pagination: model.Pagination{Page: 3, PageSize: 10},
		HospitalID: hospitalID,
		Status:     "new",
	}
	list, total, err := repo.List(context.Background(), filters)

	require.NoError(t, err)
	assert.Equal(t, 31, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Lee", list[0].PatientName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadMigrations_Ordered(t *testing.T) {
	migrations, err := LoadMigrations()

	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "hospitals_id_old_seq")
}
