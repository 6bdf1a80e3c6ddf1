package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kitcycle/kitcycle-api/internal/dto"
	"github.com/kitcycle/kitcycle-api/internal/models"
	"github.com/kitcycle/kitcycle-api/internal/repository"
	appErrors "github.com/kitcycle/kitcycle-api/pkg/errors"
)

type submissionRepoStub struct {
	subs    map[string]*models.SchoolSubmission
	pending []models.SchoolSubmission
	filter  models.SubmissionFilter
}

func newSubmissionRepoStub() *submissionRepoStub {
	return &submissionRepoStub{subs: make(map[string]*models.SchoolSubmission)}
}

func (s *submissionRepoStub) Create(ctx context.Context, sub *models.SchoolSubmission) error {
	if sub.ID == "" {
		sub.ID = "sub-stub"
	}
	s.subs[sub.ID] = sub
	return nil
}

func (s *submissionRepoStub) GetByID(ctx context.Context, id string) (*models.SchoolSubmission, error) {
	if sub, ok := s.subs[id]; ok {
		copy := *sub
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *submissionRepoStub) List(ctx context.Context, filter models.SubmissionFilter) ([]models.SchoolSubmission, error) {
	s.filter = filter
	result := make([]models.SchoolSubmission, 0, len(s.subs))
	for _, sub := range s.subs {
		result = append(result, *sub)
	}
	return result, nil
}

func (s *submissionRepoStub) FindPendingByFingerprint(ctx context.Context, normalizedName, fingerprint string) ([]models.SchoolSubmission, error) {
	return s.pending, nil
}

func (s *submissionRepoStub) UpdateDisposition(ctx context.Context, params repository.UpdateSubmissionParams) error {
	sub, ok := s.subs[params.ID]
	if !ok || sub.Status != models.SubmissionStatusPending {
		return sql.ErrNoRows
	}
	sub.Status = params.Status
	sub.ReviewedBy = &params.ReviewedBy
	sub.ReviewedAt = &params.ReviewedAt
	sub.AdminNotes = params.AdminNotes
	sub.RejectionReason = params.RejectionReason
	sub.DuplicateSchoolID = params.DuplicateSchoolID
	sub.CreatedSchoolID = params.CreatedSchoolID
	return nil
}

type schoolDirectoryStub struct {
	schools  map[string]*models.School
	byLoc    []models.School
	created  []*models.School
	counties map[string]bool
}

func newSchoolDirectoryStub() *schoolDirectoryStub {
	return &schoolDirectoryStub{
		schools:  make(map[string]*models.School),
		counties: map[string]bool{"county-1": true},
	}
}

func (s *schoolDirectoryStub) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = "school-stub"
	}
	s.created = append(s.created, school)
	s.schools[school.ID] = school
	return nil
}

func (s *schoolDirectoryStub) GetByID(ctx context.Context, id string) (*models.School, error) {
	if school, ok := s.schools[id]; ok {
		copy := *school
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *schoolDirectoryStub) ListByLocation(ctx context.Context, countyID string, localityID *string) ([]models.School, error) {
	return s.byLoc, nil
}

func (s *schoolDirectoryStub) CountyExists(ctx context.Context, id string) (bool, error) {
	return s.counties[id], nil
}

type userFinderStub struct {
	users map[string]*models.User
}

func (u *userFinderStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := u.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type submissionNotifierStub struct {
	received int
	decided  int
}

func (n *submissionNotifierStub) SubmissionReceived(ctx context.Context, sub *models.SchoolSubmission, submitter *models.User) {
	n.received++
}

func (n *submissionNotifierStub) SubmissionDecided(ctx context.Context, sub *models.SchoolSubmission, submitter *models.User, existingSchoolName string) {
	n.decided++
}

func parentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleParent, Email: id + "@example.ie", FullName: "Parent " + id}
}

func validSubmissionRequest() dto.CreateSubmissionRequest {
	return dto.CreateSubmissionRequest{
		SchoolName:       "St. Mary's NS",
		Address:          "1 Main Street, Athlone",
		CountyID:         "county-1",
		Level:            "primary",
		SubmissionReason: "my child is starting here in September",
	}
}

func TestSubmissionServiceCreate(t *testing.T) {
	repo := newSubmissionRepoStub()
	schools := newSchoolDirectoryStub()
	users := &userFinderStub{users: map[string]*models.User{}}
	audit := &auditStub{}
	notifier := &submissionNotifierStub{}
	svc := NewSubmissionService(repo, schools, users, audit, notifier, nil, nil)

	sub, err := svc.Create(context.Background(), validSubmissionRequest(), parentClaims("user-1"))
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPending, sub.Status)
	require.Equal(t, "st marys ns", sub.NormalizedName)
	require.Equal(t, "county-1", sub.Fingerprint)
	require.Len(t, audit.logs, 1)
	require.Equal(t, 1, notifier.received)
}

func TestSubmissionServiceCreateRejectsInvalidPayload(t *testing.T) {
	repo := newSubmissionRepoStub()
	svc := NewSubmissionService(repo, newSchoolDirectoryStub(), &userFinderStub{}, nil, nil, nil, nil)

	cases := map[string]func(*dto.CreateSubmissionRequest){
		"name too long":     func(r *dto.CreateSubmissionRequest) { r.SchoolName = strings.Repeat("a", 300) },
		"address too short": func(r *dto.CreateSubmissionRequest) { r.Address = "x" },
		"reason too short":  func(r *dto.CreateSubmissionRequest) { r.SubmissionReason = "no" },
		"bad website":       func(r *dto.CreateSubmissionRequest) { r.Website = strPtr("not-a-url") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validSubmissionRequest()
			mutate(&req)
			_, err := svc.Create(context.Background(), req, parentClaims("user-1"))
			require.Error(t, err)
			require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
			require.Empty(t, repo.subs)
		})
	}
}

func TestSubmissionServiceCreateDetectsExistingSchool(t *testing.T) {
	repo := newSubmissionRepoStub()
	schools := newSchoolDirectoryStub()
	// "st marys ns" contains "st marys", so the containment heuristic fires.
	schools.byLoc = []models.School{{ID: "school-1", Name: "St Marys", NormalizedName: "st marys"}}
	svc := NewSubmissionService(repo, schools, &userFinderStub{}, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), validSubmissionRequest(), parentClaims("user-1"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrDuplicateSchool.Code, appErr.Code)
	require.Equal(t, 400, appErr.Status)
	suggestion, ok := appErr.Suggestion.(dto.DuplicateSuggestion)
	require.True(t, ok)
	require.Equal(t, "school-1", suggestion.SchoolID)
}

func TestSubmissionServiceCreateDetectsPendingDuplicate(t *testing.T) {
	repo := newSubmissionRepoStub()
	repo.pending = []models.SchoolSubmission{{ID: "sub-0"}}
	schools := newSchoolDirectoryStub()
	svc := NewSubmissionService(repo, schools, &userFinderStub{}, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), validSubmissionRequest(), parentClaims("user-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyPending.Code, appErrors.FromError(err).Code)
}

func TestSubmissionServiceCreateRejectsUnknownCounty(t *testing.T) {
	repo := newSubmissionRepoStub()
	schools := newSchoolDirectoryStub()
	svc := NewSubmissionService(repo, schools, &userFinderStub{}, nil, nil, nil, nil)

	req := validSubmissionRequest()
	req.CountyID = "county-99"
	_, err := svc.Create(context.Background(), req, parentClaims("user-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmissionServiceListScopesByRole(t *testing.T) {
	repo := newSubmissionRepoStub()
	svc := NewSubmissionService(repo, newSchoolDirectoryStub(), &userFinderStub{}, nil, nil, nil, nil)

	_, err := svc.List(context.Background(), dto.SubmissionQuery{}, parentClaims("user-1"))
	require.NoError(t, err)
	require.Equal(t, "user-1", repo.filter.SubmittedBy)

	// A parent asking for the admin view still only sees their own rows.
	_, err = svc.List(context.Background(), dto.SubmissionQuery{Admin: true}, parentClaims("user-1"))
	require.NoError(t, err)
	require.Equal(t, "user-1", repo.filter.SubmittedBy)

	// Admins get the wide view only when they ask for it.
	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err = svc.List(context.Background(), dto.SubmissionQuery{}, admin)
	require.NoError(t, err)
	require.Equal(t, "admin-1", repo.filter.SubmittedBy)

	_, err = svc.List(context.Background(), dto.SubmissionQuery{Admin: true}, admin)
	require.NoError(t, err)
	require.Empty(t, repo.filter.SubmittedBy)
}

func TestSubmissionServiceReviewApproveCreatesSchool(t *testing.T) {
	repo := newSubmissionRepoStub()
	repo.subs["sub-1"] = &models.SchoolSubmission{
		ID:             "sub-1",
		SubmittedBy:    "user-1",
		SchoolName:     "Gaelscoil na Mara",
		NormalizedName: "gaelscoil na mara",
		Fingerprint:    "county-1",
		Address:        "Pier Road",
		CountyID:       "county-1",
		Level:          models.SchoolLevelPrimary,
		Status:         models.SubmissionStatusPending,
	}
	schools := newSchoolDirectoryStub()
	users := &userFinderStub{users: map[string]*models.User{
		"user-1": {ID: "user-1", Email: "user-1@example.ie", FullName: "Parent One"},
	}}
	audit := &auditStub{}
	notifier := &submissionNotifierStub{}
	svc := NewSubmissionService(repo, schools, users, audit, notifier, nil, nil)

	result, err := svc.Review(context.Background(), "sub-1", dto.ReviewSubmissionRequest{
		Action: models.SubmissionActionApprove,
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusApproved, result.Status)
	require.NotNil(t, result.CreatedSchoolID)
	require.Len(t, schools.created, 1)
	require.True(t, schools.created[0].Active)
	require.Equal(t, "gaelscoil na mara", schools.created[0].NormalizedName)
	require.Equal(t, 1, notifier.decided)
}

func TestSubmissionServiceReviewRejectRequiresReason(t *testing.T) {
	repo := newSubmissionRepoStub()
	repo.subs["sub-1"] = &models.SchoolSubmission{ID: "sub-1", Status: models.SubmissionStatusPending}
	svc := NewSubmissionService(repo, newSchoolDirectoryStub(), &userFinderStub{}, nil, nil, nil, nil)

	_, err := svc.Review(context.Background(), "sub-1", dto.ReviewSubmissionRequest{
		Action: models.SubmissionActionReject,
	}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmissionServiceReviewTwiceFails(t *testing.T) {
	repo := newSubmissionRepoStub()
	repo.subs["sub-1"] = &models.SchoolSubmission{ID: "sub-1", SubmittedBy: "user-1", Status: models.SubmissionStatusPending}
	users := &userFinderStub{users: map[string]*models.User{
		"user-1": {ID: "user-1", Email: "user-1@example.ie"},
	}}
	svc := NewSubmissionService(repo, newSchoolDirectoryStub(), users, nil, nil, nil, nil)

	_, err := svc.Review(context.Background(), "sub-1", dto.ReviewSubmissionRequest{
		Action:          models.SubmissionActionReject,
		RejectionReason: "not a real school",
	}, "admin-1")
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), "sub-1", dto.ReviewSubmissionRequest{
		Action:          models.SubmissionActionReject,
		RejectionReason: "not a real school",
	}, "admin-2")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyProcessed.Code, appErrors.FromError(err).Code)
	require.Equal(t, 400, appErrors.FromError(err).Status)
}

func TestSubmissionServiceGetEnforcesOwnership(t *testing.T) {
	repo := newSubmissionRepoStub()
	repo.subs["sub-1"] = &models.SchoolSubmission{ID: "sub-1", SubmittedBy: "user-1"}
	svc := NewSubmissionService(repo, newSchoolDirectoryStub(), &userFinderStub{}, nil, nil, nil, nil)

	_, err := svc.Get(context.Background(), "sub-1", parentClaims("user-2"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	sub, err := svc.Get(context.Background(), "sub-1", parentClaims("user-1"))
	require.NoError(t, err)
	require.Equal(t, "sub-1", sub.ID)
}
