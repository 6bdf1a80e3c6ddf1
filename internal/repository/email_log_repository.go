package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kitcycle/kitcycle-api/internal/models"
)

// EmailLogRepository records outbound email attempts.
type EmailLogRepository struct {
	db *sqlx.DB
}

// NewEmailLogRepository constructs the repository.
func NewEmailLogRepository(db *sqlx.DB) *EmailLogRepository {
	return &EmailLogRepository{db: db}
}

// Create stores an email log entry.
func (r *EmailLogRepository) Create(ctx context.Context, log *models.EmailLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO email_logs (id, recipient, template, subject, resource, resource_id, status, error, created_at)
	VALUES (:id, :recipient, :template, :subject, :resource, :resource_id, :status, :error, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create email log: %w", err)
	}
	return nil
}

// ListByResource returns the dispatch history for one entity (newest first).
func (r *EmailLogRepository) ListByResource(ctx context.Context, resource, resourceID string) ([]models.EmailLog, error) {
	const query = `SELECT id, recipient, template, subject, resource, resource_id, status, error, created_at
	FROM email_logs WHERE resource = $1 AND resource_id = $2 ORDER BY created_at DESC`
	var logs []models.EmailLog
	if err := r.db.SelectContext(ctx, &logs, query, resource, resourceID); err != nil {
		return nil, fmt.Errorf("list email logs: %w", err)
	}
	return logs, nil
}
