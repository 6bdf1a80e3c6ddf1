package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kitcycle/kitcycle-api/internal/models"
)

const listingColumns = `id, owner_id, school_id, item_type, size, condition, price_cents,
       description, photos, status, created_at, updated_at`

const listingRequestColumns = `id, listing_id, requester_id, message, status,
       responded_by, responded_at, created_at`

// ListingRepository persists marketplace listings and item requests.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository constructs the repository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Create inserts a new listing row.
func (r *ListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	if listing.Status == "" {
		listing.Status = models.ListingStatusActive
	}
	now := time.Now().UTC()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	listing.UpdatedAt = now
	const query = `INSERT INTO listings
	(id, owner_id, school_id, item_type, size, condition, price_cents, description, photos, status, created_at, updated_at)
	VALUES (:id, :owner_id, :school_id, :item_type, :size, :condition, :price_cents, :description, :photos, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, listing); err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

// GetByID fetches a listing by identifier.
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	var listing models.Listing
	if err := r.db.GetContext(ctx, &listing, query, id); err != nil {
		return nil, err
	}
	return &listing, nil
}

// List returns listings matching the filter (newest first).
func (r *ListingRepository) List(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 8)
	builder.WriteString(`SELECT ` + listingColumns + ` FROM listings`)

	conditions := make([]string, 0, 6)
	if filter.SchoolID != "" {
		args = append(args, filter.SchoolID)
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.ItemType != "" {
		args = append(args, filter.ItemType)
		conditions = append(conditions, fmt.Sprintf("item_type = $%d", len(args)))
	}
	if filter.Size != "" {
		args = append(args, filter.Size)
		conditions = append(conditions, fmt.Sprintf("size = $%d", len(args)))
	}
	if filter.Condition != "" {
		args = append(args, filter.Condition)
		conditions = append(conditions, fmt.Sprintf("condition = $%d", len(args)))
	}
	if filter.MaxPriceCents != nil {
		args = append(args, *filter.MaxPriceCents)
		conditions = append(conditions, fmt.Sprintf("price_cents <= $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(description) LIKE $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var listings []models.Listing
	if err := r.db.SelectContext(ctx, &listings, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return listings, nil
}

// CountActiveByOwner returns the number of active listings owned by a user.
func (r *ListingRepository) CountActiveByOwner(ctx context.Context, ownerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM listings WHERE owner_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, ownerID, models.ListingStatusActive); err != nil {
		return 0, fmt.Errorf("count active listings: %w", err)
	}
	return count, nil
}

// Update persists mutable listing fields.
func (r *ListingRepository) Update(ctx context.Context, listing *models.Listing) error {
	listing.UpdatedAt = time.Now().UTC()
	const query = `UPDATE listings SET size = :size, condition = :condition, price_cents = :price_cents,
	 description = :description, photos = :photos, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, listing); err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	return nil
}

// UpdateStatus transitions a listing's lifecycle state.
func (r *ListingRepository) UpdateStatus(ctx context.Context, id string, status models.ListingStatus) error {
	const query = `UPDATE listings SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update listing status: %w", err)
	}
	return nil
}

// CreateRequest inserts a new item request row.
func (r *ListingRepository) CreateRequest(ctx context.Context, req *models.ListingRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.ListingRequestPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO listing_requests
	(id, listing_id, requester_id, message, status, responded_by, responded_at, created_at)
	VALUES (:id, :listing_id, :requester_id, :message, :status, :responded_by, :responded_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create listing request: %w", err)
	}
	return nil
}

// GetRequestByID fetches an item request by identifier.
func (r *ListingRepository) GetRequestByID(ctx context.Context, id string) (*models.ListingRequest, error) {
	query := `SELECT ` + listingRequestColumns + ` FROM listing_requests WHERE id = $1`
	var req models.ListingRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// HasPendingRequest reports whether the user already has a pending request for the listing.
func (r *ListingRepository) HasPendingRequest(ctx context.Context, listingID, requesterID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM listing_requests WHERE listing_id = $1 AND requester_id = $2 AND status = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, listingID, requesterID, models.ListingRequestPending); err != nil {
		return false, fmt.Errorf("check pending listing request: %w", err)
	}
	return exists, nil
}

// UpdateRequestStatus transitions one pending request; the status guard
// prevents double-processing.
func (r *ListingRepository) UpdateRequestStatus(ctx context.Context, id string, status models.ListingRequestStatus, respondedBy string, respondedAt time.Time) error {
	const query = `UPDATE listing_requests SET status = $2, responded_by = $3, responded_at = $4
	 WHERE id = $1 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, id, status, respondedBy, respondedAt, models.ListingRequestPending)
	if err != nil {
		return fmt.Errorf("update listing request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check listing request update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeclineSiblingRequests declines every other pending request on the listing
// once one request is accepted. Returns the affected request rows so the
// requesters can be notified.
func (r *ListingRepository) DeclineSiblingRequests(ctx context.Context, listingID, acceptedID, respondedBy string, respondedAt time.Time) ([]models.ListingRequest, error) {
	const query = `UPDATE listing_requests SET status = $4, responded_by = $5, responded_at = $6
	 WHERE listing_id = $1 AND id <> $2 AND status = $3
	 RETURNING ` + listingRequestColumns
	var declined []models.ListingRequest
	if err := r.db.SelectContext(ctx, &declined, query, listingID, acceptedID, models.ListingRequestPending,
		models.ListingRequestDeclined, respondedBy, respondedAt); err != nil {
		return nil, fmt.Errorf("decline sibling requests: %w", err)
	}
	return declined, nil
}
