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

type approvalStore interface {
	Create(ctx context.Context, req *models.SchoolApprovalRequest) error
	GetByID(ctx context.Context, id string) (*models.SchoolApprovalRequest, error)
	List(ctx context.Context, filter models.ApprovalFilter) ([]models.SchoolApprovalRequest, error)
	HasPending(ctx context.Context, userID string) (bool, error)
	UpdateDisposition(ctx context.Context, params repository.UpdateApprovalParams) error
}

type approvalUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	SetAdditionalSchools(ctx context.Context, id string, schoolIDs []string) error
}

type schoolLookup interface {
	GetByID(ctx context.Context, id string) (*models.School, error)
}

type approvalNotifier interface {
	ApprovalReceived(ctx context.Context, req *models.SchoolApprovalRequest, user *models.User)
	ApprovalDecided(ctx context.Context, req *models.SchoolApprovalRequest, user *models.User)
}

// ApprovalService orchestrates requests to associate additional schools with
// a parent account.
type ApprovalService struct {
	repo       approvalStore
	users      approvalUserStore
	schools    schoolLookup
	audit      auditLogger
	notifier   approvalNotifier
	validator  *validator.Validate
	maxSchools int
	logger     *zap.Logger
}

// NewApprovalService constructs the service. maxSchools caps a user's
// combined current plus requested associations.
func NewApprovalService(repo approvalStore, users approvalUserStore, schools schoolLookup, audit auditLogger, notifier approvalNotifier, validate *validator.Validate, maxSchools int, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if maxSchools <= 0 {
		maxSchools = 15
	}
	return &ApprovalService{
		repo:       repo,
		users:      users,
		schools:    schools,
		audit:      audit,
		notifier:   notifier,
		validator:  validate,
		maxSchools: maxSchools,
		logger:     logger,
	}
}

// Create files a new approval request. One pending request per user at a
// time; every requested school must exist, be active, and not already be
// associated with the account.
func (s *ApprovalService) Create(ctx context.Context, req dto.CreateApprovalRequest, actor *models.JWTClaims) (*models.SchoolApprovalRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval request payload")
	}

	pending, err := s.repo.HasPending(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if pending {
		return nil, appErrors.ErrPendingRequest
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	current := user.SchoolIDs()
	currentSet := make(map[string]bool, len(current))
	for _, id := range current {
		currentSet[id] = true
	}

	requested := make([]string, 0, len(req.RequestedSchoolIDs))
	seen := make(map[string]bool, len(req.RequestedSchoolIDs))
	for _, id := range req.RequestedSchoolIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if currentSet[id] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "school is already associated with your account")
		}
		school, err := s.schools.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "requested school does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requested school")
		}
		if !school.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "requested school is not active")
		}
		requested = append(requested, id)
	}
	if len(requested) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one school must be requested")
	}

	if len(current)+len(requested) > s.maxSchools {
		return nil, appErrors.WithDetails(appErrors.ErrSchoolLimit, map[string]int{
			"current":   len(current),
			"requested": len(requested),
			"limit":     s.maxSchools,
		})
	}

	request := &models.SchoolApprovalRequest{
		UserID:             actor.UserID,
		CurrentSchoolIDs:   current,
		RequestedSchoolIDs: requested,
		Reason:             strings.TrimSpace(req.Reason),
		Status:             models.ApprovalStatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create approval request")
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionApprovalCreate, request.ID)
	if s.notifier != nil {
		s.notifier.ApprovalReceived(ctx, request, user)
	}
	return request, nil
}

// List returns approval requests scoped by role.
func (s *ApprovalService) List(ctx context.Context, query dto.ApprovalQuery, actor *models.JWTClaims) ([]models.SchoolApprovalRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.ApprovalFilter{
		Status: query.Status,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if !query.Admin || !actor.Role.IsAdmin() {
		filter.UserID = actor.UserID
	}
	reqs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approval requests")
	}
	return reqs, nil
}

// Get returns a request enforcing ownership for non-admins.
func (s *ApprovalService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.SchoolApprovalRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval request")
	}
	if !actor.Role.IsAdmin() && req.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return req, nil
}

// Review applies the admin decision. An approval may narrow the grant to a
// subset of the requested schools; empty means grant all of them.
func (s *ApprovalService) Review(ctx context.Context, id string, req dto.ReviewApprovalRequest, reviewerID string) (*models.SchoolApprovalRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval request")
	}
	if request.Status.Terminal() {
		return nil, appErrors.ErrAlreadyProcessed
	}

	now := time.Now().UTC()
	params := repository.UpdateApprovalParams{
		ID:         request.ID,
		ReviewedBy: reviewerID,
		ReviewedAt: now,
	}

	switch req.Action {
	case models.ApprovalActionApprove:
		approved, err := resolveApprovedSet(request.RequestedSchoolIDs, req.ApprovedSchoolIDs)
		if err != nil {
			return nil, err
		}
		params.Status = models.ApprovalStatusApproved
		params.ApprovedSchoolIDs = approved
	case models.ApprovalActionDeny:
		if strings.TrimSpace(req.DenialReason) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "denialReason is required when denying")
		}
		params.Status = models.ApprovalStatusDenied
		params.DenialReason = optionalString(req.DenialReason)
		params.SuggestedNextSteps = optionalString(req.SuggestedNextSteps)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be approve or deny")
	}

	user, userErr := s.users.FindByID(ctx, request.UserID)

	// The grant lands before the guarded status transition: if it fails the
	// request is still pending and the review can simply be retried. Granting
	// is a set-to-merged-list write, so repeating it is harmless.
	if params.Status == models.ApprovalStatusApproved {
		if userErr != nil {
			return nil, appErrors.Wrap(userErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user for school grant")
		}
		additional := mergeSchoolIDs(user.AdditionalSchoolIDs, params.ApprovedSchoolIDs, user.PrimarySchoolID)
		if err := s.users.SetAdditionalSchools(ctx, user.ID, additional); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant school associations")
		}
	}

	if err := s.repo.UpdateDisposition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyProcessed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update approval request")
	}

	request.Status = params.Status
	request.ReviewedBy = &reviewerID
	request.ReviewedAt = &now
	request.ApprovedSchoolIDs = params.ApprovedSchoolIDs
	request.DenialReason = params.DenialReason
	request.SuggestedNextSteps = params.SuggestedNextSteps
	request.UpdatedAt = now

	s.emitAudit(ctx, reviewerID, models.AuditActionApprovalReview, request.ID)
	if s.notifier != nil && userErr == nil {
		s.notifier.ApprovalDecided(ctx, request, user)
	}
	return request, nil
}

// resolveApprovedSet validates a requested approval subset; an empty subset
// means the whole requested set.
func resolveApprovedSet(requested, subset []string) ([]string, error) {
	if len(subset) == 0 {
		return append([]string(nil), requested...), nil
	}
	requestedSet := make(map[string]bool, len(requested))
	for _, id := range requested {
		requestedSet[id] = true
	}
	approved := make([]string, 0, len(subset))
	seen := make(map[string]bool, len(subset))
	for _, id := range subset {
		if !requestedSet[id] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "approvedSchoolIds must be a subset of the requested schools")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		approved = append(approved, id)
	}
	return approved, nil
}

func mergeSchoolIDs(existing []string, granted []string, primary *string) []string {
	seen := make(map[string]bool, len(existing)+len(granted))
	if primary != nil && *primary != "" {
		seen[*primary] = true
	}
	merged := make([]string, 0, len(existing)+len(granted))
	for _, id := range existing {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	for _, id := range granted {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	return merged
}

func (s *ApprovalService) emitAudit(ctx context.Context, userID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "school_approval_request",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "approval-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
