package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/kitcycle/kitcycle-api/internal/models"
)

var approvalRowColumns = []string{
	"id", "user_id", "current_school_ids", "requested_school_ids", "reason", "status",
	"approved_school_ids", "denial_reason", "suggested_next_steps", "reviewed_by", "reviewed_at",
	"emails_sent", "created_at", "updated_at",
}

func TestApprovalRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO school_approval_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.SchoolApprovalRequest{
		UserID:             "user-1",
		CurrentSchoolIDs:   pq.StringArray{"school-1"},
		RequestedSchoolIDs: pq.StringArray{"school-2", "school-3"},
		Reason:             "kids moving to secondary school",
	}
	require.NoError(t, repo.Create(context.Background(), req))
	require.NotEmpty(t, req.ID)
	require.Equal(t, models.ApprovalStatusPending, req.Status)

	rows := sqlmock.NewRows(approvalRowColumns).
		AddRow(req.ID, "user-1", `{school-1}`, `{school-2,school-3}`, "kids moving to secondary school", "pending",
			nil, nil, nil, nil, nil,
			false, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, current_school_ids")).
		WithArgs(req.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, req.ID, found.ID)
	require.Len(t, found.RequestedSchoolIDs, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepositoryHasPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("user-1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	pending, err := repo.HasPending(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, pending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepositoryUpdateDisposition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE school_approval_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.UpdateDisposition(context.Background(), UpdateApprovalParams{
		ID:                "req-1",
		Status:            models.ApprovalStatusApproved,
		ReviewedBy:        "admin-1",
		ReviewedAt:        now,
		ApprovedSchoolIDs: []string{"school-2"},
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE school_approval_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.UpdateDisposition(context.Background(), UpdateApprovalParams{
		ID:         "req-1",
		Status:     models.ApprovalStatusDenied,
		ReviewedBy: "admin-1",
		ReviewedAt: now,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
