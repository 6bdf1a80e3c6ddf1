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

const submissionColumns = `id, submitted_by, school_name, normalized_name, fingerprint, address, county_id,
       locality_id, level, website, phone, email, submission_reason, additional_notes, status,
       reviewed_by, reviewed_at, admin_notes, rejection_reason, duplicate_school_id, created_school_id,
       emails_sent, created_at, updated_at`

// SubmissionRepository persists school submission workflow data.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a new submission row.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.SchoolSubmission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.Status == "" {
		sub.Status = models.SubmissionStatusPending
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	const query = `INSERT INTO school_submissions
	(id, submitted_by, school_name, normalized_name, fingerprint, address, county_id, locality_id, level,
	 website, phone, email, submission_reason, additional_notes, status, reviewed_by, reviewed_at,
	 admin_notes, rejection_reason, duplicate_school_id, created_school_id, emails_sent, created_at, updated_at)
	VALUES (:id, :submitted_by, :school_name, :normalized_name, :fingerprint, :address, :county_id, :locality_id, :level,
	 :website, :phone, :email, :submission_reason, :additional_notes, :status, :reviewed_by, :reviewed_at,
	 :admin_notes, :rejection_reason, :duplicate_school_id, :created_school_id, :emails_sent, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// GetByID fetches a submission by identifier.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.SchoolSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM school_submissions WHERE id = $1`
	var sub models.SchoolSubmission
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// List returns submissions matching the filter (newest first).
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.SchoolSubmission, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + submissionColumns + ` FROM school_submissions`)

	conditions := make([]string, 0, 3)
	if filter.SubmittedBy != "" {
		args = append(args, filter.SubmittedBy)
		conditions = append(conditions, fmt.Sprintf("submitted_by = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CountyID != "" {
		args = append(args, filter.CountyID)
		conditions = append(conditions, fmt.Sprintf("county_id = $%d", len(args)))
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

	var subs []models.SchoolSubmission
	if err := r.db.SelectContext(ctx, &subs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// FindPendingByFingerprint returns pending submissions with the exact
// normalized name and location fingerprint, excluding the given submitter if set.
func (r *SubmissionRepository) FindPendingByFingerprint(ctx context.Context, normalizedName, fingerprint string) ([]models.SchoolSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM school_submissions
	WHERE status = $1 AND normalized_name = $2 AND fingerprint = $3`
	var subs []models.SchoolSubmission
	if err := r.db.SelectContext(ctx, &subs, query, models.SubmissionStatusPending, normalizedName, fingerprint); err != nil {
		return nil, fmt.Errorf("find pending submissions: %w", err)
	}
	return subs, nil
}

// UpdateSubmissionParams groups mutable columns for disposition operations.
type UpdateSubmissionParams struct {
	ID                string
	Status            models.SubmissionStatus
	ReviewedBy        string
	ReviewedAt        time.Time
	AdminNotes        *string
	RejectionReason   *string
	DuplicateSchoolID *string
	CreatedSchoolID   *string
}

// UpdateDisposition persists the admin decision. The status guard makes the
// pending -> terminal transition happen at most once; a second attempt
// affects zero rows and surfaces as sql.ErrNoRows.
func (r *SubmissionRepository) UpdateDisposition(ctx context.Context, params UpdateSubmissionParams) error {
	setParts := []string{
		"status = :status",
		"reviewed_by = :reviewed_by",
		"reviewed_at = :reviewed_at",
		"updated_at = :reviewed_at",
	}
	if params.AdminNotes != nil {
		setParts = append(setParts, "admin_notes = :admin_notes")
	}
	if params.RejectionReason != nil {
		setParts = append(setParts, "rejection_reason = :rejection_reason")
	}
	if params.DuplicateSchoolID != nil {
		setParts = append(setParts, "duplicate_school_id = :duplicate_school_id")
	}
	if params.CreatedSchoolID != nil {
		setParts = append(setParts, "created_school_id = :created_school_id")
	}
	query := fmt.Sprintf("UPDATE school_submissions SET %s WHERE id = :id AND status = '%s'",
		strings.Join(setParts, ", "),
		models.SubmissionStatusPending,
	)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                  params.ID,
		"status":              params.Status,
		"reviewed_by":         params.ReviewedBy,
		"reviewed_at":         params.ReviewedAt,
		"admin_notes":         params.AdminNotes,
		"rejection_reason":    params.RejectionReason,
		"duplicate_school_id": params.DuplicateSchoolID,
		"created_school_id":   params.CreatedSchoolID,
	})
	if err != nil {
		return fmt.Errorf("update submission disposition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check submission update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkEmailsSent flips the notification tracking flag. Best-effort; callers
// log and ignore failures.
func (r *SubmissionRepository) MarkEmailsSent(ctx context.Context, id string) error {
	const query = `UPDATE school_submissions SET emails_sent = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark submission emails sent: %w", err)
	}
	return nil
}
