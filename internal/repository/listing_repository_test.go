package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/kitcycle/kitcycle-api/internal/models"
)

var listingRowColumns = []string{
	"id", "owner_id", "school_id", "item_type", "size", "condition", "price_cents",
	"description", "photos", "status", "created_at", "updated_at",
}

var listingRequestRowColumns = []string{
	"id", "listing_id", "requester_id", "message", "status",
	"responded_by", "responded_at", "created_at",
}

func TestListingRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewListingRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO listings")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	listing := &models.Listing{
		OwnerID:    "user-1",
		SchoolID:   "school-1",
		ItemType:   models.ItemTypeJumper,
		Size:       "age 7-8",
		Condition:  models.ConditionGood,
		PriceCents: 500,
	}
	require.NoError(t, repo.Create(context.Background(), listing))
	require.Equal(t, models.ListingStatusActive, listing.Status)

	rows := sqlmock.NewRows(listingRowColumns).
		AddRow(listing.ID, "user-1", "school-1", "jumper", "age 7-8", "good", 500,
			"", `{}`, "active", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, school_id")).
		WithArgs("school-1", "jumper", "active").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.ListingFilter{
		SchoolID: "school-1",
		ItemType: "jumper",
		Status:   []models.ListingStatus{models.ListingStatusActive},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, listing.ID, list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryCountActiveByOwner(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewListingRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM listings")).
		WithArgs("user-1", "active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountActiveByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryUpdateRequestStatusGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewListingRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE listing_requests SET")).
		WithArgs("lr-1", models.ListingRequestAccepted, "owner-1", now, models.ListingRequestPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateRequestStatus(context.Background(), "lr-1", models.ListingRequestAccepted, "owner-1", now))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE listing_requests SET")).
		WithArgs("lr-1", models.ListingRequestDeclined, "owner-1", now, models.ListingRequestPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateRequestStatus(context.Background(), "lr-1", models.ListingRequestDeclined, "owner-1", now)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryDeclineSiblingRequests(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewListingRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(listingRequestRowColumns).
		AddRow("lr-2", "listing-1", "user-2", "", "declined", "owner-1", now, time.Now()).
		AddRow("lr-3", "listing-1", "user-3", "", "declined", "owner-1", now, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE listing_requests SET")).
		WillReturnRows(rows)

	declined, err := repo.DeclineSiblingRequests(context.Background(), "listing-1", "lr-1", "owner-1", now)
	require.NoError(t, err)
	require.Len(t, declined, 2)
	require.Equal(t, "user-2", declined[0].RequesterID)
	require.NoError(t, mock.ExpectationsWereMet())
}
