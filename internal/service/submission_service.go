package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kitcycle/kitcycle-api/internal/dto"
	"github.com/kitcycle/kitcycle-api/internal/models"
	"github.com/kitcycle/kitcycle-api/internal/repository"
	appErrors "github.com/kitcycle/kitcycle-api/pkg/errors"
)

type submissionStore interface {
	Create(ctx context.Context, sub *models.SchoolSubmission) error
	GetByID(ctx context.Context, id string) (*models.SchoolSubmission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.SchoolSubmission, error)
	FindPendingByFingerprint(ctx context.Context, normalizedName, fingerprint string) ([]models.SchoolSubmission, error)
	UpdateDisposition(ctx context.Context, params repository.UpdateSubmissionParams) error
}

type schoolDirectory interface {
	Create(ctx context.Context, school *models.School) error
	GetByID(ctx context.Context, id string) (*models.School, error)
	ListByLocation(ctx context.Context, countyID string, localityID *string) ([]models.School, error)
	CountyExists(ctx context.Context, id string) (bool, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type submissionNotifier interface {
	SubmissionReceived(ctx context.Context, sub *models.SchoolSubmission, submitter *models.User)
	SubmissionDecided(ctx context.Context, sub *models.SchoolSubmission, submitter *models.User, existingSchoolName string)
}

// SubmissionService orchestrates the school submission workflow: intake with
// duplicate detection, listing, and admin disposition.
type SubmissionService struct {
	repo      submissionStore
	schools   schoolDirectory
	users     userFinder
	audit     auditLogger
	notifier  submissionNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubmissionService constructs the service.
func NewSubmissionService(repo submissionStore, schools schoolDirectory, users userFinder, audit auditLogger, notifier submissionNotifier, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubmissionService{
		repo:      repo,
		schools:   schools,
		users:     users,
		audit:     audit,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// Create accepts a new school submission after running both duplicate checks.
//
// Check one compares the normalized name against active schools in the same
// county (and locality, when given): a containment match rejects the intake
// and points the caller at the existing school. Check two looks for a pending
// submission with the exact same normalized name and location fingerprint.
func (s *SubmissionService) Create(ctx context.Context, req dto.CreateSubmissionRequest, actor *models.JWTClaims) (*models.SchoolSubmission, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	level := models.SchoolLevel(strings.ToLower(strings.TrimSpace(req.Level)))
	if !level.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "level must be primary or secondary")
	}
	known, err := s.schools.CountyExists(ctx, req.CountyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate county")
	}
	if !known {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown county")
	}

	normalized := models.NormalizeSchoolName(req.SchoolName)
	if normalized == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "school name must contain letters or digits")
	}
	fingerprint := models.LocationFingerprint(req.CountyID, req.LocalityID)

	existing, err := s.schools.ListByLocation(ctx, req.CountyID, req.LocalityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing schools")
	}
	for i := range existing {
		if models.NamesCollide(normalized, existing[i].NormalizedName) {
			return nil, appErrors.WithSuggestion(appErrors.ErrDuplicateSchool, dto.DuplicateSuggestion{
				SchoolID:   existing[i].ID,
				SchoolName: existing[i].Name,
			})
		}
	}

	pending, err := s.repo.FindPendingByFingerprint(ctx, normalized, fingerprint)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending submissions")
	}
	if len(pending) > 0 {
		return nil, appErrors.ErrAlreadyPending
	}

	sub := &models.SchoolSubmission{
		SubmittedBy:      actor.UserID,
		SchoolName:       strings.TrimSpace(req.SchoolName),
		NormalizedName:   normalized,
		Fingerprint:      fingerprint,
		Address:          strings.TrimSpace(req.Address),
		CountyID:         req.CountyID,
		LocalityID:       req.LocalityID,
		Level:            level,
		Website:          req.Website,
		Phone:            req.Phone,
		Email:            req.Email,
		SubmissionReason: strings.TrimSpace(req.SubmissionReason),
		AdditionalNotes:  req.AdditionalNotes,
		Status:           models.SubmissionStatusPending,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionSubmissionCreate, sub.ID)
	if s.notifier != nil {
		s.notifier.SubmissionReceived(ctx, sub, &models.User{
			ID:       actor.UserID,
			Email:    actor.Email,
			FullName: actor.FullName,
		})
	}
	return sub, nil
}

// List returns submissions scoped by role: admins asking for the admin view
// see everything, everyone else sees only their own.
func (s *SubmissionService) List(ctx context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]models.SchoolSubmission, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.SubmissionFilter{
		Status: query.Status,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if !query.Admin || !actor.Role.IsAdmin() {
		filter.SubmittedBy = actor.UserID
	}
	subs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return subs, nil
}

// Get returns a submission enforcing ownership for non-admins.
func (s *SubmissionService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.SchoolSubmission, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if !actor.Role.IsAdmin() && sub.SubmittedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return sub, nil
}

// Review applies the admin decision. An approval creates the canonical
// school record; the guarded status update makes the pending -> terminal
// transition happen at most once.
func (s *SubmissionService) Review(ctx context.Context, id string, req dto.ReviewSubmissionRequest, reviewerID string) (*models.SchoolSubmission, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if sub.Status.Terminal() {
		return nil, appErrors.ErrAlreadyProcessed
	}

	now := time.Now().UTC()
	params := repository.UpdateSubmissionParams{
		ID:         sub.ID,
		ReviewedBy: reviewerID,
		ReviewedAt: now,
		AdminNotes: optionalString(req.AdminNotes),
	}

	var duplicateName string
	switch req.Action {
	case models.SubmissionActionApprove:
		school := &models.School{
			Name:           sub.SchoolName,
			NormalizedName: sub.NormalizedName,
			Address:        sub.Address,
			CountyID:       sub.CountyID,
			LocalityID:     sub.LocalityID,
			Level:          sub.Level,
			Website:        sub.Website,
			Phone:          sub.Phone,
			Email:          sub.Email,
			Active:         true,
		}
		if err := s.schools.Create(ctx, school); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
		}
		params.Status = models.SubmissionStatusApproved
		params.CreatedSchoolID = &school.ID
	case models.SubmissionActionReject:
		if strings.TrimSpace(req.RejectionReason) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "rejectionReason is required when rejecting")
		}
		params.Status = models.SubmissionStatusRejected
		params.RejectionReason = optionalString(req.RejectionReason)
	case models.SubmissionActionMarkDuplicate:
		if req.DuplicateSchoolID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicateSchoolId is required when marking a duplicate")
		}
		school, err := s.schools.GetByID(ctx, req.DuplicateSchoolID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "duplicateSchoolId does not reference a known school")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load duplicate school")
		}
		duplicateName = school.Name
		params.Status = models.SubmissionStatusDuplicate
		params.DuplicateSchoolID = &req.DuplicateSchoolID
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be approve, reject, or mark_duplicate")
	}

	if err := s.repo.UpdateDisposition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyProcessed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
	}

	sub.Status = params.Status
	sub.ReviewedBy = &reviewerID
	sub.ReviewedAt = &now
	sub.AdminNotes = params.AdminNotes
	sub.RejectionReason = params.RejectionReason
	sub.DuplicateSchoolID = params.DuplicateSchoolID
	sub.CreatedSchoolID = params.CreatedSchoolID
	sub.UpdatedAt = now

	s.emitAudit(ctx, reviewerID, models.AuditActionSubmissionReview, sub.ID)
	s.notifyDecision(ctx, sub, duplicateName)
	return sub, nil
}

func (s *SubmissionService) notifyDecision(ctx context.Context, sub *models.SchoolSubmission, duplicateName string) {
	if s.notifier == nil {
		return
	}
	submitter, err := s.users.FindByID(ctx, sub.SubmittedBy)
	if err != nil {
		s.logger.Warn("failed to load submitter for notification",
			zap.String("submission_id", sub.ID), zap.Error(err))
		return
	}
	s.notifier.SubmissionDecided(ctx, sub, submitter, duplicateName)
}

func (s *SubmissionService) emitAudit(ctx context.Context, userID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "school_submission",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "submission-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
