package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kitcycle/kitcycle-api/internal/dto"
	"github.com/kitcycle/kitcycle-api/internal/models"
	appErrors "github.com/kitcycle/kitcycle-api/pkg/errors"
	"github.com/kitcycle/kitcycle-api/pkg/response"
)

type listingService interface {
	Create(ctx context.Context, req dto.CreateListingRequest, actor *models.JWTClaims) (*models.Listing, error)
	List(ctx context.Context, query dto.ListingQuery, actor *models.JWTClaims) ([]models.Listing, error)
	Get(ctx context.Context, id string) (*models.Listing, error)
	Update(ctx context.Context, id string, req dto.UpdateListingRequest, actor *models.JWTClaims) (*models.Listing, error)
	RequestItem(ctx context.Context, listingID string, req dto.CreateListingRequestRequest, actor *models.JWTClaims) (*models.ListingRequest, error)
	Respond(ctx context.Context, requestID string, req dto.RespondListingRequest, actor *models.JWTClaims) (*models.ListingRequest, error)
}

// ListingHandler exposes marketplace listing endpoints.
type ListingHandler struct {
	service listingService
}

// NewListingHandler constructs the handler.
func NewListingHandler(service listingService) *ListingHandler {
	return &ListingHandler{service: service}
}

// Create godoc
// @Summary Create a listing
// @Tags Listings
// @Accept json
// @Produce json
// @Param payload body dto.CreateListingRequest true "Listing payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /listings [post]
func (h *ListingHandler) Create(c *gin.Context) {
	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid listing payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	listing, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, listing, nil)
}

// List godoc
// @Summary Browse listings
// @Tags Listings
// @Produce json
// @Param schoolId query string false "School ID"
// @Param itemType query string false "Item type"
// @Param size query string false "Size"
// @Param condition query string false "Condition"
// @Param maxPrice query int false "Maximum price in cents"
// @Param q query string false "Description search"
// @Param mine query bool false "Only the caller's listings"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /listings [get]
func (h *ListingHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.ListingQuery{
		SchoolID: strings.TrimSpace(c.Query("schoolId")),
		Size:     strings.TrimSpace(c.Query("size")),
		Search:   strings.TrimSpace(c.Query("q")),
		Mine:     c.Query("mine") == "true",
		Limit:    intQuery(c, "limit"),
		Offset:   intQuery(c, "offset"),
	}
	if raw := c.Query("itemType"); raw != "" {
		query.ItemType = models.ItemType(strings.ToLower(strings.TrimSpace(raw)))
	}
	if raw := c.Query("condition"); raw != "" {
		query.Condition = models.ItemCondition(strings.ToLower(strings.TrimSpace(raw)))
	}
	if raw := c.Query("maxPrice"); raw != "" {
		maxPrice := intQuery(c, "maxPrice")
		query.MaxPriceCents = &maxPrice
	}
	listings, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listings, nil)
}

// Get godoc
// @Summary Get listing detail
// @Tags Listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /listings/{id} [get]
func (h *ListingHandler) Get(c *gin.Context) {
	listing, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Update godoc
// @Summary Update an owned listing
// @Tags Listings
// @Accept json
// @Produce json
// @Param id path string true "Listing ID"
// @Param payload body dto.UpdateListingRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /listings/{id} [put]
func (h *ListingHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid update payload"))
		return
	}
	listing, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// RequestItem godoc
// @Summary Request a listed item
// @Tags Listings
// @Accept json
// @Produce json
// @Param id path string true "Listing ID"
// @Param payload body dto.CreateListingRequestRequest true "Request message"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /listings/{id}/requests [post]
func (h *ListingHandler) RequestItem(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateListingRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	request, err := h.service.RequestItem(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, request, nil)
}

// Respond godoc
// @Summary Respond to an item request
// @Tags Listings
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RespondListingRequest true "Disposition"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /listing-requests/{id} [put]
func (h *ListingHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RespondListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid disposition payload"))
		return
	}
	request, err := h.service.Respond(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
