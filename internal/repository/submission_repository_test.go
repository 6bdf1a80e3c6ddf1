package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/kitcycle/kitcycle-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var submissionRowColumns = []string{
	"id", "submitted_by", "school_name", "normalized_name", "fingerprint", "address", "county_id",
	"locality_id", "level", "website", "phone", "email", "submission_reason", "additional_notes", "status",
	"reviewed_by", "reviewed_at", "admin_notes", "rejection_reason", "duplicate_school_id", "created_school_id",
	"emails_sent", "created_at", "updated_at",
}

func TestSubmissionRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO school_submissions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sub := &models.SchoolSubmission{
		SubmittedBy:      "user-1",
		SchoolName:       "St. Mary's NS",
		NormalizedName:   "st marys ns",
		Fingerprint:      "county-1",
		Address:          "1 Main Street, Athlone",
		CountyID:         "county-1",
		Level:            models.SchoolLevelPrimary,
		SubmissionReason: "my child starts here in September",
	}
	require.NoError(t, repo.Create(context.Background(), sub))
	require.NotEmpty(t, sub.ID)
	require.Equal(t, models.SubmissionStatusPending, sub.Status)

	rows := sqlmock.NewRows(submissionRowColumns).
		AddRow(sub.ID, "user-1", "St. Mary's NS", "st marys ns", "county-1", "1 Main Street, Athlone", "county-1",
			nil, "primary", nil, nil, nil, "my child starts here in September", nil, "pending",
			nil, nil, nil, nil, nil, nil,
			false, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, submitted_by, school_name")).
		WithArgs(sub.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, sub.ID, found.ID)
	require.Equal(t, models.SubmissionStatusPending, found.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	rows := sqlmock.NewRows(submissionRowColumns).
		AddRow("sub-1", "user-1", "Gaelscoil na Mara", "gaelscoil na mara", "county-2", "Pier Road", "county-2",
			nil, "primary", nil, nil, nil, "moving to the area", nil, "pending",
			nil, nil, nil, nil, nil, nil,
			false, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, submitted_by, school_name")).
		WithArgs("user-1", "pending").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.SubmissionFilter{
		SubmittedBy: "user-1",
		Status:      []models.SubmissionStatus{models.SubmissionStatusPending},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "sub-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindPendingByFingerprint(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	rows := sqlmock.NewRows(submissionRowColumns).
		AddRow("sub-2", "user-2", "CBS Secondary", "cbs secondary", "county-1|loc-1", "High Street", "county-1",
			"loc-1", "secondary", nil, nil, nil, "second child enrolling", nil, "pending",
			nil, nil, nil, nil, nil, nil,
			false, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, submitted_by, school_name")).
		WithArgs("pending", "cbs secondary", "county-1|loc-1").
		WillReturnRows(rows)

	matches, err := repo.FindPendingByFingerprint(context.Background(), "cbs secondary", "county-1|loc-1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateDisposition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	now := time.Now()
	schoolID := "school-9"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE school_submissions SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.UpdateDisposition(context.Background(), UpdateSubmissionParams{
		ID:              "sub-1",
		Status:          models.SubmissionStatusApproved,
		ReviewedBy:      "admin-1",
		ReviewedAt:      now,
		CreatedSchoolID: &schoolID,
	})
	require.NoError(t, err)

	// Already-processed rows match zero rows under the status guard.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE school_submissions SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.UpdateDisposition(context.Background(), UpdateSubmissionParams{
		ID:         "sub-1",
		Status:     models.SubmissionStatusRejected,
		ReviewedBy: "admin-1",
		ReviewedAt: now,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryMarkEmailsSent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE school_submissions SET emails_sent = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkEmailsSent(context.Background(), "sub-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
