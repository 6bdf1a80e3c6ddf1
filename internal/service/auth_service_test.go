package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kitcycle/kitcycle-api/internal/models"
	appErrors "github.com/kitcycle/kitcycle-api/pkg/errors"
)

type authRepoStub struct {
	usersByEmail  map[string]*models.User
	usersByID     map[string]*models.User
	tokens        map[string]*models.RefreshToken
	revokedTokens []string
	revokedUsers  []string
	lastLogin     map[string]time.Time
	passwords     map[string]string
	auditLogs     []*models.AuditLog
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		usersByEmail: map[string]*models.User{},
		usersByID:    map[string]*models.User{},
		tokens:       map[string]*models.RefreshToken{},
		lastLogin:    map[string]time.Time{},
		passwords:    map[string]string{},
	}
}

func (s *authRepoStub) addUser(user *models.User) {
	s.usersByEmail[user.Email] = user
	s.usersByID[user.ID] = user
}

func (s *authRepoStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := s.usersByEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *authRepoStub) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.usersByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *authRepoStub) Create(_ context.Context, user *models.User) error {
	s.addUser(user)
	return nil
}

func (s *authRepoStub) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	s.lastLogin[id] = ts
	return nil
}

func (s *authRepoStub) UpdatePassword(_ context.Context, id, passwordHash string, _ time.Time) error {
	s.passwords[id] = passwordHash
	if user, ok := s.usersByID[id]; ok {
		user.PasswordHash = passwordHash
	}
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	s.revokedUsers = append(s.revokedUsers, userID)
	return nil
}

func (s *authRepoStub) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.tokens[token.Token] = token
	return nil
}

func (s *authRepoStub) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := s.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (s *authRepoStub) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	s.revokedTokens = append(s.revokedTokens, id)
	for _, token := range s.tokens {
		if token.ID == id {
			token.Revoked = true
		}
	}
	return nil
}

func (s *authRepoStub) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "kitcycle-api",
	}
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceRegister(t *testing.T) {
	repo := newAuthRepoStub()
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "Parent@Example.COM",
		Password: "correct-horse",
		FullName: "  Aoife Byrne ",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, models.RoleParent, resp.User.Role)

	user, ok := repo.usersByEmail["parent@example.com"]
	require.True(t, ok, "email should be stored lowercased")
	require.Equal(t, "Aoife Byrne", user.FullName)
	require.True(t, user.Active)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{ID: "user-1", Email: "parent@example.com"})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "parent@example.com",
		Password: "correct-horse",
		FullName: "Aoife Byrne",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "parent@example.com",
		PasswordHash: hashPassword(t, "correct-horse"),
		FullName:     "Aoife Byrne",
		Role:         models.RoleParent,
		Active:       true,
	})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "parent@example.com",
		Password: "correct-horse",
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Contains(t, repo.lastLogin, "user-1")
	require.Len(t, repo.auditLogs, 1)
	require.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, models.RoleParent, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "parent@example.com",
		PasswordHash: hashPassword(t, "correct-horse"),
		Active:       true,
	})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "parent@example.com",
		Password: "wrong-horse",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "parent@example.com",
		PasswordHash: hashPassword(t, "correct-horse"),
		Active:       false,
	})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "parent@example.com",
		Password: "correct-horse",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{
		ID:     "user-1",
		Email:  "parent@example.com",
		Role:   models.RoleParent,
		Active: true,
	})
	repo.tokens["old-token"] = &models.RefreshToken{
		ID:        "token-1",
		UserID:    "user-1",
		Token:     "old-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEqual(t, "old-token", resp.RefreshToken)
	require.Contains(t, repo.revokedTokens, "token-1")
}

func TestAuthServiceRefreshRejectsExpired(t *testing.T) {
	repo := newAuthRepoStub()
	repo.tokens["old-token"] = &models.RefreshToken{
		ID:        "token-1",
		UserID:    "user-1",
		Token:     "old-token",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutChecksOwnership(t *testing.T) {
	repo := newAuthRepoStub()
	repo.tokens["their-token"] = &models.RefreshToken{
		ID:        "token-1",
		UserID:    "user-2",
		Token:     "their-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.Logout(context.Background(), "their-token", "user-1", models.LoginRequest{})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	require.Empty(t, repo.revokedTokens)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "parent@example.com",
		PasswordHash: hashPassword(t, "correct-horse"),
		Active:       true,
	})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "correct-horse",
		NewPassword: "battery-staple",
	})
	require.NoError(t, err)
	require.Contains(t, repo.passwords, "user-1")
	require.Contains(t, repo.revokedUsers, "user-1", "existing sessions should be revoked")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwords["user-1"]), []byte("battery-staple")))
}

func TestAuthServiceValidateTokenRejectsBadSecret(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "parent@example.com",
		PasswordHash: hashPassword(t, "correct-horse"),
		Active:       true,
	})

	issuer := NewAuthService(repo, nil, nil, testAuthConfig())
	resp, err := issuer.Login(context.Background(), models.LoginRequest{
		Email:    "parent@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	other := testAuthConfig()
	other.AccessTokenSecret = "different-secret"
	verifier := NewAuthService(repo, nil, nil, other)

	_, err = verifier.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}
