package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kitcycle/kitcycle-api/internal/models"
)

const schoolColumns = `id, name, normalized_name, address, county_id, locality_id, level,
       website, phone, email, active, created_at, updated_at`

// SchoolRepository provides database access to the school directory.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// Create inserts a new school row.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if school.CreatedAt.IsZero() {
		school.CreatedAt = now
	}
	school.UpdatedAt = now
	const query = `INSERT INTO schools
	(id, name, normalized_name, address, county_id, locality_id, level, website, phone, email, active, created_at, updated_at)
	VALUES (:id, :name, :normalized_name, :address, :county_id, :locality_id, :level, :website, :phone, :email, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// GetByID fetches a school by identifier.
func (r *SchoolRepository) GetByID(ctx context.Context, id string) (*models.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// List returns active schools matching the filter, sorted by name.
func (r *SchoolRepository) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + schoolColumns + ` FROM schools WHERE active = TRUE`)

	if filter.CountyID != "" {
		args = append(args, filter.CountyID)
		builder.WriteString(fmt.Sprintf(" AND county_id = $%d", len(args)))
	}
	if filter.LocalityID != "" {
		args = append(args, filter.LocalityID)
		builder.WriteString(fmt.Sprintf(" AND locality_id = $%d", len(args)))
	}
	if filter.Level != "" {
		args = append(args, filter.Level)
		builder.WriteString(fmt.Sprintf(" AND level = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		builder.WriteString(fmt.Sprintf(" AND normalized_name LIKE $%d", len(args)))
	}
	builder.WriteString(" ORDER BY name ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return schools, nil
}

// ListByLocation returns active schools in the county, narrowed to the
// locality when one is given. Feeds the duplicate-detection heuristic.
func (r *SchoolRepository) ListByLocation(ctx context.Context, countyID string, localityID *string) ([]models.School, error) {
	builder := strings.Builder{}
	args := []interface{}{countyID}
	builder.WriteString(`SELECT ` + schoolColumns + ` FROM schools WHERE active = TRUE AND county_id = $1`)
	if localityID != nil && *localityID != "" {
		args = append(args, *localityID)
		builder.WriteString(fmt.Sprintf(" AND locality_id = $%d", len(args)))
	}
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list schools by location: %w", err)
	}
	return schools, nil
}

// Counties returns all counties sorted by name.
func (r *SchoolRepository) Counties(ctx context.Context) ([]models.County, error) {
	const query = `SELECT id, name FROM counties ORDER BY name ASC`
	var counties []models.County
	if err := r.db.SelectContext(ctx, &counties, query); err != nil {
		return nil, fmt.Errorf("list counties: %w", err)
	}
	return counties, nil
}

// Localities returns all localities sorted by name.
func (r *SchoolRepository) Localities(ctx context.Context) ([]models.Locality, error) {
	const query = `SELECT id, county_id, name FROM localities ORDER BY name ASC`
	var localities []models.Locality
	if err := r.db.SelectContext(ctx, &localities, query); err != nil {
		return nil, fmt.Errorf("list localities: %w", err)
	}
	return localities, nil
}

// CountyExists reports whether a county id is known.
func (r *SchoolRepository) CountyExists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM counties WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check county: %w", err)
	}
	return exists, nil
}
