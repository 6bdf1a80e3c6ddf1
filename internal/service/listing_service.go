package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kitcycle/kitcycle-api/internal/dto"
	"github.com/kitcycle/kitcycle-api/internal/models"
	appErrors "github.com/kitcycle/kitcycle-api/pkg/errors"
)

type listingStore interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	List(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error)
	CountActiveByOwner(ctx context.Context, ownerID string) (int, error)
	Update(ctx context.Context, listing *models.Listing) error
	UpdateStatus(ctx context.Context, id string, status models.ListingStatus) error
	CreateRequest(ctx context.Context, req *models.ListingRequest) error
	GetRequestByID(ctx context.Context, id string) (*models.ListingRequest, error)
	HasPendingRequest(ctx context.Context, listingID, requesterID string) (bool, error)
	UpdateRequestStatus(ctx context.Context, id string, status models.ListingRequestStatus, respondedBy string, respondedAt time.Time) error
	DeclineSiblingRequests(ctx context.Context, listingID, acceptedID, respondedBy string, respondedAt time.Time) ([]models.ListingRequest, error)
}

type listingNotifier interface {
	ListingRequested(ctx context.Context, request *models.ListingRequest, listing *models.Listing, owner, requester *models.User)
	ListingRequestResponded(ctx context.Context, request *models.ListingRequest, listing *models.Listing, requester *models.User)
}

// ListingConfig tunes the marketplace service.
type ListingConfig struct {
	MaxActiveListings int
	CacheTTL          time.Duration
}

// ListingService manages marketplace listings and item requests.
type ListingService struct {
	repo      listingStore
	users     userFinder
	schools   schoolLookup
	audit     auditLogger
	notifier  listingNotifier
	cache     cacheStore
	validator *validator.Validate
	cfg       ListingConfig
	logger    *zap.Logger
}

// NewListingService constructs the service. cache may be nil when caching is
// disabled.
func NewListingService(repo listingStore, users userFinder, schools schoolLookup, audit auditLogger, notifier listingNotifier, cache cacheStore, validate *validator.Validate, cfg ListingConfig, logger *zap.Logger) *ListingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxActiveListings <= 0 {
		cfg.MaxActiveListings = 50
	}
	return &ListingService{
		repo:      repo,
		users:     users,
		schools:   schools,
		audit:     audit,
		notifier:  notifier,
		cache:     cache,
		validator: validate,
		cfg:       cfg,
		logger:    logger,
	}
}

// Create publishes a new listing. The school must be one the user is
// associated with.
func (s *ListingService) Create(ctx context.Context, req dto.CreateListingRequest, actor *models.JWTClaims) (*models.Listing, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid listing payload")
	}
	itemType := models.ItemType(strings.ToLower(strings.TrimSpace(req.ItemType)))
	if !itemType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported item type")
	}
	condition := models.ItemCondition(strings.ToLower(strings.TrimSpace(req.Condition)))
	if !condition.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "condition must be new, excellent, good, or fair")
	}

	school, err := s.schools.GetByID(ctx, req.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown school")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	if !school.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "school is not active")
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !actor.Role.IsAdmin() && !containsID(user.SchoolIDs(), req.SchoolID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only list items for your own schools")
	}

	active, err := s.repo.CountActiveByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count listings")
	}
	if active >= s.cfg.MaxActiveListings {
		return nil, appErrors.Clone(appErrors.ErrValidation, "active listing limit reached")
	}

	listing := &models.Listing{
		OwnerID:     actor.UserID,
		SchoolID:    req.SchoolID,
		ItemType:    itemType,
		Size:        strings.TrimSpace(req.Size),
		Condition:   condition,
		PriceCents:  req.PriceCents,
		Description: strings.TrimSpace(req.Description),
		Photos:      req.Photos,
		Status:      models.ListingStatusActive,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create listing")
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionListingCreate, listing.ID)
	return listing, nil
}

// List returns marketplace listings. Mine narrows to the actor's own
// listings regardless of status; otherwise only active listings are shown.
func (s *ListingService) List(ctx context.Context, query dto.ListingQuery, actor *models.JWTClaims) ([]models.Listing, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.ListingFilter{
		SchoolID:      query.SchoolID,
		ItemType:      query.ItemType,
		Size:          query.Size,
		Condition:     query.Condition,
		MaxPriceCents: query.MaxPriceCents,
		Search:        query.Search,
		Limit:         query.Limit,
		Offset:        query.Offset,
	}
	if query.Mine {
		filter.OwnerID = actor.UserID
	} else {
		filter.Status = []models.ListingStatus{models.ListingStatusActive}
	}

	// Public browse pages are cached briefly; reservation churn makes a
	// longer TTL misleading.
	cacheable := s.cache != nil && s.cfg.CacheTTL > 0 && !query.Mine && query.Search == ""
	key := fmt.Sprintf("marketplace:listings:%s:%s:%s:%s:%s:%d:%d",
		query.SchoolID, query.ItemType, query.Size, query.Condition, maxPriceKey(query.MaxPriceCents), query.Limit, query.Offset)
	if cacheable {
		var cached []models.Listing
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("listing cache read failed", zap.Error(err))
		}
	}

	listings, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list listings")
	}

	if cacheable {
		if err := s.cache.Set(ctx, key, listings, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("listing cache write failed", zap.Error(err))
		}
	}
	return listings, nil
}

func maxPriceKey(maxPrice *int) string {
	if maxPrice == nil {
		return ""
	}
	return strconv.Itoa(*maxPrice)
}

// Get returns a single listing.
func (s *ListingService) Get(ctx context.Context, id string) (*models.Listing, error) {
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	return listing, nil
}

// Update mutates an owned listing. Completed listings are immutable.
func (s *ListingService) Update(ctx context.Context, id string, req dto.UpdateListingRequest, actor *models.JWTClaims) (*models.Listing, error) {
	listing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if listing.OwnerID != actor.UserID && !actor.Role.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	if listing.Status == models.ListingStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "completed listings cannot be edited")
	}

	if req.Size != nil {
		listing.Size = strings.TrimSpace(*req.Size)
	}
	if req.Condition != nil {
		condition := models.ItemCondition(strings.ToLower(*req.Condition))
		if !condition.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "condition must be new, excellent, good, or fair")
		}
		listing.Condition = condition
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "price must not be negative")
		}
		listing.PriceCents = *req.PriceCents
	}
	if req.Description != nil {
		listing.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		status := models.ListingStatus(strings.ToLower(*req.Status))
		switch status {
		case models.ListingStatusActive:
			// Relisting is only for withdrawn items; a reserved listing has
			// an accepted request attached and must go through that request.
			if listing.Status == models.ListingStatusReserved {
				return nil, appErrors.Clone(appErrors.ErrValidation, "reserved listings cannot be relisted; respond to the accepted request instead")
			}
			listing.Status = status
		case models.ListingStatusWithdrawn, models.ListingStatusCompleted:
			listing.Status = status
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must be active, withdrawn, or completed")
		}
	}

	if err := s.repo.Update(ctx, listing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update listing")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionListingUpdate, listing.ID)
	return listing, nil
}

// RequestItem files a request for a listed item. Owners cannot request their
// own items; one pending request per listing per user.
func (s *ListingService) RequestItem(ctx context.Context, listingID string, req dto.CreateListingRequestRequest, actor *models.JWTClaims) (*models.ListingRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	listing, err := s.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "listing is not available")
	}
	if listing.OwnerID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "you cannot request your own listing")
	}

	pending, err := s.repo.HasPendingRequest(ctx, listingID, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing requests")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrPendingRequest, "you already have a pending request for this listing")
	}

	request := &models.ListingRequest{
		ListingID:   listingID,
		RequesterID: actor.UserID,
		Message:     strings.TrimSpace(req.Message),
		Status:      models.ListingRequestPending,
	}
	if err := s.repo.CreateRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	if s.notifier != nil {
		owner, err := s.users.FindByID(ctx, listing.OwnerID)
		if err != nil {
			s.logger.Warn("failed to load owner for notification", zap.Error(err))
		} else {
			s.notifier.ListingRequested(ctx, request, listing, owner, &models.User{
				ID:       actor.UserID,
				Email:    actor.Email,
				FullName: actor.FullName,
			})
		}
	}
	return request, nil
}

// Respond applies a disposition to a pending item request. Owners accept or
// decline; requesters may cancel their own request. Accepting reserves the
// listing and declines every other pending request on it.
func (s *ListingService) Respond(ctx context.Context, requestID string, req dto.RespondListingRequest, actor *models.JWTClaims) (*models.ListingRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	listing, err := s.Get(ctx, request.ListingID)
	if err != nil {
		return nil, err
	}

	var status models.ListingRequestStatus
	switch req.Action {
	case "accept":
		if listing.OwnerID != actor.UserID {
			return nil, appErrors.ErrForbidden
		}
		status = models.ListingRequestAccepted
	case "decline":
		if listing.OwnerID != actor.UserID {
			return nil, appErrors.ErrForbidden
		}
		status = models.ListingRequestDeclined
	case "cancel":
		if request.RequesterID != actor.UserID {
			return nil, appErrors.ErrForbidden
		}
		status = models.ListingRequestCancelled
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be accept, decline, or cancel")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateRequestStatus(ctx, requestID, status, actor.UserID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyProcessed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}
	request.Status = status
	request.RespondedBy = &actor.UserID
	request.RespondedAt = &now

	if status == models.ListingRequestAccepted {
		if err := s.repo.UpdateStatus(ctx, listing.ID, models.ListingStatusReserved); err != nil {
			s.logger.Error("failed to reserve listing", zap.String("listing_id", listing.ID), zap.Error(err))
		}
		declined, err := s.repo.DeclineSiblingRequests(ctx, listing.ID, requestID, actor.UserID, now)
		if err != nil {
			s.logger.Error("failed to decline sibling requests", zap.String("listing_id", listing.ID), zap.Error(err))
		} else {
			for i := range declined {
				s.notifyResponse(ctx, &declined[i], listing)
			}
		}
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionListingRespond, request.ID)
	if status != models.ListingRequestCancelled {
		s.notifyResponse(ctx, request, listing)
	}
	return request, nil
}

func (s *ListingService) notifyResponse(ctx context.Context, request *models.ListingRequest, listing *models.Listing) {
	if s.notifier == nil {
		return
	}
	requester, err := s.users.FindByID(ctx, request.RequesterID)
	if err != nil {
		s.logger.Warn("failed to load requester for notification", zap.Error(err))
		return
	}
	s.notifier.ListingRequestResponded(ctx, request, listing, requester)
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (s *ListingService) emitAudit(ctx context.Context, userID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "listing",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "listing-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
