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

type schoolDirectoryService interface {
	List(ctx context.Context, query dto.SchoolQuery) ([]models.School, error)
	Get(ctx context.Context, id string) (*models.School, error)
	Locations(ctx context.Context) ([]models.CountyWithLocalities, error)
}

// SchoolHandler exposes the public school directory.
type SchoolHandler struct {
	service schoolDirectoryService
}

// NewSchoolHandler constructs the handler.
func NewSchoolHandler(service schoolDirectoryService) *SchoolHandler {
	return &SchoolHandler{service: service}
}

// List godoc
// @Summary List active schools
// @Tags Schools
// @Produce json
// @Param countyId query string false "County ID"
// @Param localityId query string false "Locality ID"
// @Param level query string false "School level"
// @Param q query string false "Name search"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /schools [get]
func (h *SchoolHandler) List(c *gin.Context) {
	query := dto.SchoolQuery{
		CountyID:   strings.TrimSpace(c.Query("countyId")),
		LocalityID: strings.TrimSpace(c.Query("localityId")),
		Search:     strings.TrimSpace(c.Query("q")),
		Limit:      intQuery(c, "limit"),
		Offset:     intQuery(c, "offset"),
	}
	if rawLevel := c.Query("level"); rawLevel != "" {
		query.Level = models.SchoolLevel(strings.ToLower(strings.TrimSpace(rawLevel)))
	}
	schools, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, nil)
}

// Get godoc
// @Summary Get school detail
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{id} [get]
func (h *SchoolHandler) Get(c *gin.Context) {
	school, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// Locations godoc
// @Summary List counties with their localities
// @Tags Schools
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /counties [get]
func (h *SchoolHandler) Locations(c *gin.Context) {
	counties, err := h.service.Locations(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.FromError(err))
		return
	}
	response.JSON(c, http.StatusOK, counties, nil)
}
