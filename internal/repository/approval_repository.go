package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kitcycle/kitcycle-api/internal/models"
)

const approvalColumns = `id, user_id, current_school_ids, requested_school_ids, reason, status,
       approved_school_ids, denial_reason, suggested_next_steps, reviewed_by, reviewed_at,
       emails_sent, created_at, updated_at`

// ApprovalRepository persists school approval request workflow data.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Create inserts a new approval request row.
func (r *ApprovalRepository) Create(ctx context.Context, req *models.SchoolApprovalRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.ApprovalStatusPending
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	const query = `INSERT INTO school_approval_requests
	(id, user_id, current_school_ids, requested_school_ids, reason, status, approved_school_ids,
	 denial_reason, suggested_next_steps, reviewed_by, reviewed_at, emails_sent, created_at, updated_at)
	VALUES (:id, :user_id, :current_school_ids, :requested_school_ids, :reason, :status, :approved_school_ids,
	 :denial_reason, :suggested_next_steps, :reviewed_by, :reviewed_at, :emails_sent, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create approval request: %w", err)
	}
	return nil
}

// GetByID fetches an approval request by identifier.
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*models.SchoolApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM school_approval_requests WHERE id = $1`
	var req models.SchoolApprovalRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns approval requests matching the filter (newest first).
func (r *ApprovalRepository) List(ctx context.Context, filter models.ApprovalFilter) ([]models.SchoolApprovalRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 3)
	builder.WriteString(`SELECT ` + approvalColumns + ` FROM school_approval_requests`)

	conditions := make([]string, 0, 2)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
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

	var reqs []models.SchoolApprovalRequest
	if err := r.db.SelectContext(ctx, &reqs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list approval requests: %w", err)
	}
	return reqs, nil
}

// HasPending reports whether the user already has a pending request.
func (r *ApprovalRepository) HasPending(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM school_approval_requests WHERE user_id = $1 AND status = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, models.ApprovalStatusPending); err != nil {
		return false, fmt.Errorf("check pending approval request: %w", err)
	}
	return exists, nil
}

// UpdateApprovalParams groups mutable columns for disposition operations.
type UpdateApprovalParams struct {
	ID                 string
	Status             models.ApprovalStatus
	ReviewedBy         string
	ReviewedAt         time.Time
	ApprovedSchoolIDs  []string
	DenialReason       *string
	SuggestedNextSteps *string
}

// UpdateDisposition persists the admin decision behind a pending-status guard.
func (r *ApprovalRepository) UpdateDisposition(ctx context.Context, params UpdateApprovalParams) error {
	setParts := []string{
		"status = :status",
		"reviewed_by = :reviewed_by",
		"reviewed_at = :reviewed_at",
		"updated_at = :reviewed_at",
	}
	if params.ApprovedSchoolIDs != nil {
		setParts = append(setParts, "approved_school_ids = :approved_school_ids")
	}
	if params.DenialReason != nil {
		setParts = append(setParts, "denial_reason = :denial_reason")
	}
	if params.SuggestedNextSteps != nil {
		setParts = append(setParts, "suggested_next_steps = :suggested_next_steps")
	}
	query := fmt.Sprintf("UPDATE school_approval_requests SET %s WHERE id = :id AND status = '%s'",
		strings.Join(setParts, ", "),
		models.ApprovalStatusPending,
	)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                   params.ID,
		"status":               params.Status,
		"reviewed_by":          params.ReviewedBy,
		"reviewed_at":          params.ReviewedAt,
		"approved_school_ids":  pq.StringArray(params.ApprovedSchoolIDs),
		"denial_reason":        params.DenialReason,
		"suggested_next_steps": params.SuggestedNextSteps,
	})
	if err != nil {
		return fmt.Errorf("update approval disposition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check approval update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkEmailsSent flips the notification tracking flag.
func (r *ApprovalRepository) MarkEmailsSent(ctx context.Context, id string) error {
	const query = `UPDATE school_approval_requests SET emails_sent = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark approval emails sent: %w", err)
	}
	return nil
}
