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

type approvalService interface {
	Create(ctx context.Context, req dto.CreateApprovalRequest, actor *models.JWTClaims) (*models.SchoolApprovalRequest, error)
	List(ctx context.Context, query dto.ApprovalQuery, actor *models.JWTClaims) ([]models.SchoolApprovalRequest, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.SchoolApprovalRequest, error)
	Review(ctx context.Context, id string, req dto.ReviewApprovalRequest, reviewerID string) (*models.SchoolApprovalRequest, error)
}

// ApprovalHandler exposes REST endpoints for school approval requests.
type ApprovalHandler struct {
	service approvalService
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(service approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// Create godoc
// @Summary Request additional school associations
// @Tags School Approval Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateApprovalRequest true "Approval request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /school-approval-requests [post]
func (h *ApprovalHandler) Create(c *gin.Context) {
	var req dto.CreateApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval request payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, request, nil)
}

// List godoc
// @Summary List school approval requests
// @Tags School Approval Requests
// @Produce json
// @Param admin query bool false "Admin view (all requests)"
// @Param status query string false "Comma separated statuses"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /school-approval-requests [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.ApprovalQuery{
		Admin:  c.Query("admin") == "true",
		Limit:  intQuery(c, "limit"),
		Offset: intQuery(c, "offset"),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.ApprovalStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.ApprovalStatus(part))
		}
		query.Status = statuses
	}
	requests, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get approval request detail
// @Tags School Approval Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /school-approval-requests/{id} [get]
func (h *ApprovalHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Review godoc
// @Summary Review a school approval request
// @Tags School Approval Requests
// @Accept json
// @Produce json
// @Param id query string true "Request ID"
// @Param payload body dto.ReviewApprovalRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /school-approval-requests [put]
func (h *ApprovalHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id query parameter is required"))
		return
	}
	var req dto.ReviewApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	request, err := h.service.Review(c.Request.Context(), id, req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
