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

type submissionServiceMock struct {
	createResp *models.SchoolSubmission
	createErr  error
	listResp   []models.SchoolSubmission
	listErr    error
	getResp    *models.SchoolSubmission
	getErr     error
	reviewResp *models.SchoolSubmission
	reviewErr  error

	lastQuery    dto.SubmissionQuery
	lastReviewID string
	createCalled bool
	reviewCalled bool
}

func (m *submissionServiceMock) Create(ctx context.Context, req dto.CreateSubmissionRequest, actor *models.JWTClaims) (*models.SchoolSubmission, error) {
	m.createCalled = true
	return m.createResp, m.createErr
}

func (m *submissionServiceMock) List(ctx context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]models.SchoolSubmission, error) {
	m.lastQuery = query
	return m.listResp, m.listErr
}

func (m *submissionServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.SchoolSubmission, error) {
	return m.getResp, m.getErr
}

func (m *submissionServiceMock) Review(ctx context.Context, id string, req dto.ReviewSubmissionRequest, reviewerID string) (*models.SchoolSubmission, error) {
	m.reviewCalled = true
	m.lastReviewID = id
	return m.reviewResp, m.reviewErr
}

func testClaims(role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: role, Email: "user-1@example.ie"}
}

func TestSubmissionHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &submissionServiceMock{
		createResp: &models.SchoolSubmission{ID: "sub-1", Status: models.SubmissionStatusPending},
	}
	handler := NewSubmissionHandler(mockSvc)

	payload, _ := json.Marshal(dto.CreateSubmissionRequest{
		SchoolName:       "St. Mary's NS",
		Address:          "1 Main Street",
		CountyID:         "county-1",
		Level:            "primary",
		SubmissionReason: "my child is starting here",
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/school-submissions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims(models.RoleParent))

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.createCalled)
}

func TestSubmissionHandlerCreateDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &submissionServiceMock{
		createErr: appErrors.WithSuggestion(appErrors.ErrDuplicateSchool, dto.DuplicateSuggestion{SchoolID: "school-1"}),
	}
	handler := NewSubmissionHandler(mockSvc)

	payload, _ := json.Marshal(dto.CreateSubmissionRequest{
		SchoolName:       "St. Mary's NS",
		Address:          "1 Main Street",
		CountyID:         "county-1",
		Level:            "primary",
		SubmissionReason: "my child is starting here",
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/school-submissions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims(models.RoleParent))

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "DUPLICATE_SCHOOL", envelope["code"])
	assert.NotNil(t, envelope["suggestion"])
}

func TestSubmissionHandlerListPassesQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &submissionServiceMock{}
	handler := NewSubmissionHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/school-submissions?admin=true&status=pending,approved&limit=25", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims(models.RoleAdmin))

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.lastQuery.Admin)
	assert.Equal(t, []models.SubmissionStatus{models.SubmissionStatusPending, models.SubmissionStatusApproved}, mockSvc.lastQuery.Status)
	assert.Equal(t, 25, mockSvc.lastQuery.Limit)
}

func TestSubmissionHandlerReviewRequiresID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &submissionServiceMock{}
	handler := NewSubmissionHandler(mockSvc)

	payload, _ := json.Marshal(dto.ReviewSubmissionRequest{Action: models.SubmissionActionApprove})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/school-submissions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims(models.RoleAdmin))

	handler.Review(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.reviewCalled)
}

func TestSubmissionHandlerReview(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &submissionServiceMock{
		reviewResp: &models.SchoolSubmission{ID: "sub-1", Status: models.SubmissionStatusApproved},
	}
	handler := NewSubmissionHandler(mockSvc)

	payload, _ := json.Marshal(dto.ReviewSubmissionRequest{Action: models.SubmissionActionApprove})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/school-submissions?id=sub-1", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims(models.RoleAdmin))

	handler.Review(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sub-1", mockSvc.lastReviewID)
}

func TestSubmissionHandlerUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSubmissionHandler(&submissionServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/school-submissions", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
