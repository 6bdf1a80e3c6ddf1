package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitcycle/kitcycle-api/internal/dto"
	"github.com/kitcycle/kitcycle-api/internal/middleware"
	"github.com/kitcycle/kitcycle-api/internal/models"
	appErrors "github.com/kitcycle/kitcycle-api/pkg/errors"
)

type listingServiceMock struct {
	createResp  *models.Listing
	createErr   error
	listResp    []models.Listing
	listErr     error
	getResp     *models.Listing
	getErr      error
	updateResp  *models.Listing
	updateErr   error
	requestResp *models.ListingRequest
	requestErr  error
	respondResp *models.ListingRequest
	respondErr  error

	lastQuery     dto.ListingQuery
	lastListingID string
	lastRequestID string
}

func (m *listingServiceMock) Create(ctx context.Context, req dto.CreateListingRequest, actor *models.JWTClaims) (*models.Listing, error) {
	return m.createResp, m.createErr
}

func (m *listingServiceMock) List(ctx context.Context, query dto.ListingQuery, actor *models.JWTClaims) ([]models.Listing, error) {
	m.lastQuery = query
	return m.listResp, m.listErr
}

func (m *listingServiceMock) Get(ctx context.Context, id string) (*models.Listing, error) {
	return m.getResp, m.getErr
}

func (m *listingServiceMock) Update(ctx context.Context, id string, req dto.UpdateListingRequest, actor *models.JWTClaims) (*models.Listing, error) {
	return m.updateResp, m.updateErr
}

func (m *listingServiceMock) RequestItem(ctx context.Context, listingID string, req dto.CreateListingRequestRequest, actor *models.JWTClaims) (*models.ListingRequest, error) {
	m.lastListingID = listingID
	return m.requestResp, m.requestErr
}

func (m *listingServiceMock) Respond(ctx context.Context, requestID string, req dto.RespondListingRequest, actor *models.JWTClaims) (*models.ListingRequest, error) {
	m.lastRequestID = requestID
	return m.respondResp, m.respondErr
}

func TestListingHandlerListParsesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &listingServiceMock{}
	handler := NewListingHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/listings?schoolId=school-1&itemType=Jumper&condition=GOOD&maxPrice=1500&mine=true", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims(models.RoleParent))

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "school-1", mockSvc.lastQuery.SchoolID)
	assert.Equal(t, models.ItemTypeJumper, mockSvc.lastQuery.ItemType)
	assert.Equal(t, models.ConditionGood, mockSvc.lastQuery.Condition)
	require.NotNil(t, mockSvc.lastQuery.MaxPriceCents)
	assert.Equal(t, 1500, *mockSvc.lastQuery.MaxPriceCents)
	assert.True(t, mockSvc.lastQuery.Mine)
}

func TestListingHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewListingHandler(&listingServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/listings", bytes.NewBufferString(`{"schoolId":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims(models.RoleParent))

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListingHandlerRequestItem(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &listingServiceMock{
		requestResp: &models.ListingRequest{ID: "lreq-1", Status: models.ListingRequestPending},
	}
	handler := NewListingHandler(mockSvc)

	payload, _ := json.Marshal(dto.CreateListingRequestRequest{Message: "interested"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/listings/listing-1/requests", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "listing-1"}}
	c.Set(middleware.ContextUserKey, testClaims(models.RoleParent))

	handler.RequestItem(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "listing-1", mockSvc.lastListingID)
}

func TestListingHandlerRespondServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &listingServiceMock{
		respondErr: appErrors.ErrAlreadyProcessed,
	}
	handler := NewListingHandler(mockSvc)

	payload, _ := json.Marshal(dto.RespondListingRequest{Action: "accept"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/listing-requests/lreq-1", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "lreq-1"}}
	c.Set(middleware.ContextUserKey, testClaims(models.RoleParent))

	handler.Respond(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "lreq-1", mockSvc.lastRequestID)
}
