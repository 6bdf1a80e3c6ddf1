package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitcycle/kitcycle-api/internal/dto"
	"github.com/kitcycle/kitcycle-api/internal/models"
	"github.com/kitcycle/kitcycle-api/internal/repository"
	appErrors "github.com/kitcycle/kitcycle-api/pkg/errors"
	"github.com/kitcycle/kitcycle-api/pkg/export"
	"github.com/kitcycle/kitcycle-api/pkg/jobs"
	"github.com/kitcycle/kitcycle-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type exportSubmissionSource interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.SchoolSubmission, error)
}

type exportSchoolSource interface {
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, error)
}

type exportListingSource interface {
	List(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	Workers         int
	Retries         int
}

const exportPageSize = 200

// ExportService queues admin exports, renders them in the background, and
// serves signed download URLs once finished.
type ExportService struct {
	repo        exportJobStore
	submissions exportSubmissionSource
	schools     exportSchoolSource
	listings    exportListingSource
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	queue       *jobs.Queue
	audit       auditLogger
	logger      *zap.Logger
	cfg         ExportConfig

	cleanupCancel context.CancelFunc
}

// NewExportService constructs an ExportService.
func NewExportService(repo exportJobStore, submissions exportSubmissionSource, schools exportSchoolSource, listings exportListingSource, store fileStorage, signer *storage.SignedURLSigner, audit auditLogger, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	s := &ExportService{
		repo:        repo,
		submissions: submissions,
		schools:     schools,
		listings:    listings,
		storage:     store,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		signer:      signer,
		audit:       audit,
		logger:      logger,
		cfg:         cfg,
	}
	s.queue = jobs.NewQueue("exports", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers and the cleanup loop.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	cleanupCtx, cancel := context.WithCancel(ctx)
	s.cleanupCancel = cancel
	go s.cleanupLoop(cleanupCtx)
}

// Stop drains workers and halts cleanup.
func (s *ExportService) Stop() {
	if s.cleanupCancel != nil {
		s.cleanupCancel()
	}
	s.queue.Stop()
}

// CreateJob validates and queues a new export.
func (s *ExportService) CreateJob(ctx context.Context, req dto.CreateExportRequest, actor *models.JWTClaims) (*models.ExportJob, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	exportType := models.ExportType(strings.ToLower(req.Type))
	switch exportType {
	case models.ExportTypeSubmissions, models.ExportTypeSchools, models.ExportTypeListings:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be submissions, schools, or listings")
	}
	format := models.ExportFormat(strings.ToLower(req.Format))
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	job := &models.ExportJob{
		Type: exportType,
		Params: models.ExportJobParams{
			Format:   format,
			CountyID: req.CountyID,
			Status:   req.Status,
			Extras:   req.Extras,
		},
		Status:    models.ExportStatusQueued,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "export", Payload: job.ID}); err != nil {
		msg := "export queue unavailable"
		_ = s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       statusPtr(models.ExportStatusFailed),
			ErrorMessage: &msg,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export job")
	}

	if s.audit != nil {
		userID := actor.UserID
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &userID,
			Action:     models.AuditActionExportCreate,
			Resource:   "export_job",
			ResourceID: &job.ID,
			IPAddress:  "system",
			UserAgent:  "export-service",
		}); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	return job, nil
}

// Status reports a job's state and, once finished, a signed download URL.
func (s *ExportService) Status(ctx context.Context, id string) (*dto.ExportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	resp := &dto.ExportStatusResponse{
		ID:     job.ID,
		Type:   string(job.Type),
		Format: string(job.Params.Format),
		Status: string(job.Status),
		Error:  job.ErrorMessage,
	}
	if job.Status == models.ExportStatusFinished && job.ResultURL != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.ResultURL)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download URL")
		}
		url := fmt.Sprintf("%s/admin/exports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)
		expiry := expiresAt.UTC().Format(time.RFC3339)
		resp.DownloadURL = &url
		resp.ExpiresAt = &expiry
	}
	return resp, nil
}

// OpenDownload validates a signed token and returns the stored file.
func (s *ExportService) OpenDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.ErrNotFound
	}
	return file, relPath, nil
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok {
		return nil
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", id, err)
	}
	if record.Status != models.ExportStatusQueued {
		return nil
	}

	if err := s.repo.Update(ctx, id, repository.UpdateExportJobParams{
		Status: statusPtr(models.ExportStatusProcessing),
	}); err != nil {
		return err
	}

	relPath, genErr := s.generate(ctx, record)
	now := time.Now().UTC()
	if genErr != nil {
		s.logger.Error("export generation failed", zap.String("job_id", id), zap.Error(genErr))
		msg := genErr.Error()
		return s.repo.Update(ctx, id, repository.UpdateExportJobParams{
			Status:       statusPtr(models.ExportStatusFailed),
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
	}
	return s.repo.Update(ctx, id, repository.UpdateExportJobParams{
		Status:     statusPtr(models.ExportStatusFinished),
		ResultURL:  &relPath,
		FinishedAt: &now,
	})
}

func (s *ExportService) generate(ctx context.Context, job *models.ExportJob) (string, error) {
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return "", err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_%s.%s", job.Type, time.Now().UTC().Format("20060102_150405"), job.Params.Format)
	return s.storage.Save(filename, payload)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeSubmissions:
		return s.buildSubmissionsDataset(ctx, job.Params)
	case models.ExportTypeSchools:
		return s.buildSchoolsDataset(ctx, job.Params)
	case models.ExportTypeListings:
		return s.buildListingsDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) buildSubmissionsDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	filter := models.SubmissionFilter{Limit: exportPageSize}
	if params.CountyID != nil {
		filter.CountyID = *params.CountyID
	}
	if params.Status != nil {
		filter.Status = []models.SubmissionStatus{models.SubmissionStatus(*params.Status)}
	}

	headers := []string{"ID", "School Name", "County", "Level", "Status", "Submitted By", "Created At", "Reviewed At"}
	rows := make([]map[string]string, 0, exportPageSize)
	for {
		page, err := s.submissions.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, sub := range page {
			rows = append(rows, map[string]string{
				"ID":           sub.ID,
				"School Name":  sub.SchoolName,
				"County":       sub.CountyID,
				"Level":        string(sub.Level),
				"Status":       string(sub.Status),
				"Submitted By": sub.SubmittedBy,
				"Created At":   sub.CreatedAt.UTC().Format(time.RFC3339),
				"Reviewed At":  formatOptionalTime(sub.ReviewedAt),
			})
		}
		if len(page) < exportPageSize {
			break
		}
		filter.Offset += exportPageSize
	}
	return export.Dataset{Headers: headers, Rows: rows}, "School Submissions", nil
}

func (s *ExportService) buildSchoolsDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	filter := models.SchoolFilter{Limit: exportPageSize}
	if params.CountyID != nil {
		filter.CountyID = *params.CountyID
	}

	headers := []string{"ID", "Name", "Address", "County", "Level", "Created At"}
	rows := make([]map[string]string, 0, exportPageSize)
	for {
		page, err := s.schools.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, school := range page {
			rows = append(rows, map[string]string{
				"ID":         school.ID,
				"Name":       school.Name,
				"Address":    school.Address,
				"County":     school.CountyID,
				"Level":      string(school.Level),
				"Created At": school.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		if len(page) < exportPageSize {
			break
		}
		filter.Offset += exportPageSize
	}
	return export.Dataset{Headers: headers, Rows: rows}, "School Directory", nil
}

func (s *ExportService) buildListingsDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	filter := models.ListingFilter{Limit: exportPageSize}
	if params.Status != nil {
		filter.Status = []models.ListingStatus{models.ListingStatus(*params.Status)}
	}
	if params.CountyID != nil {
		// Listings carry no county directly; export everything and let the
		// school column drive any downstream filtering.
		s.logger.Debug("county filter ignored for listings export")
	}

	headers := []string{"ID", "School", "Item", "Size", "Condition", "Price (cents)", "Status", "Created At"}
	rows := make([]map[string]string, 0, exportPageSize)
	for {
		page, err := s.listings.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, listing := range page {
			rows = append(rows, map[string]string{
				"ID":            listing.ID,
				"School":        listing.SchoolID,
				"Item":          string(listing.ItemType),
				"Size":          listing.Size,
				"Condition":     string(listing.Condition),
				"Price (cents)": fmt.Sprintf("%d", listing.PriceCents),
				"Status":        string(listing.Status),
				"Created At":    listing.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		if len(page) < exportPageSize {
			break
		}
		filter.Offset += exportPageSize
	}
	return export.Dataset{Headers: headers, Rows: rows}, "Marketplace Listings", nil
}

func (s *ExportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				s.logger.Info("removed expired export files", zap.Int("count", len(removed)))
			}
		}
	}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func statusPtr(status models.ExportStatus) *models.ExportStatus {
	return &status
}
