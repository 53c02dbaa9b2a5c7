package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type authRepoStub struct {
	users         map[string]*models.User
	profiles      map[string]*models.StudentProfile
	refreshTokens map[string]*models.RefreshToken
	revokedUsers  []string
	sequence      int64
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		users:         make(map[string]*models.User),
		profiles:      make(map[string]*models.StudentProfile),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (r *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (r *authRepoStub) Create(ctx context.Context, user *models.User) error {
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *authRepoStub) CreateStudentProfile(ctx context.Context, profile *models.StudentProfile) error {
	r.profiles[profile.UserID] = profile
	return nil
}

func (r *authRepoStub) NextStudentSequence(ctx context.Context) (int64, error) {
	r.sequence++
	return r.sequence, nil
}

func (r *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (r *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	r.revokedUsers = append(r.revokedUsers, userID)
	for _, t := range r.refreshTokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (r *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	stored := *token
	r.refreshTokens[token.Token] = &stored
	return nil
}

func (r *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := r.refreshTokens[token]; ok {
		copy := *t
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range r.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func newAuthFixture() (*AuthService, *authRepoStub, *auditStub) {
	repo := newAuthRepoStub()
	audit := &auditStub{}
	svc := NewAuthService(repo, audit, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "academy-api-test",
	})
	return svc, repo, audit
}

func seedUser(repo *authRepoStub, id, email, password string, role models.UserRole, active bool) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	repo.users[id] = &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test User",
		Role:         role,
		Active:       active,
	}
}

func TestAuthLoginIssuesValidToken(t *testing.T) {
	svc, repo, audit := newAuthFixture()
	seedUser(repo, "user-1", "student@example.com", "secret123", models.RoleStudent, true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "user-1", resp.User.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionLogin, audit.logs[0].Action)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedUser(repo, "user-1", "student@example.com", "secret123", models.RoleStudent, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginUnknownEmailSameError(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedUser(repo, "user-1", "student@example.com", "secret123", models.RoleStudent, false)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthRegisterCreatesStudentWithCode(t *testing.T) {
	svc, repo, _ := newAuthFixture()

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "new@example.com",
		Password: "secret123",
		FullName: "New Student",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	profile := repo.profiles[resp.User.ID]
	require.NotNil(t, profile)
	assert.Contains(t, profile.StudentCode, "STU-")
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedUser(repo, "user-1", "taken@example.com", "secret123", models.RoleStudent, true)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "taken@example.com",
		Password: "secret123",
		FullName: "Someone",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedUser(repo, "user-1", "student@example.com", "secret123", models.RoleStudent, true)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token is revoked; replaying it fails.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshUnknownToken(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "does-not-exist"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthLogoutOtherUsersToken(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedUser(repo, "user-1", "student@example.com", "secret123", models.RoleStudent, true)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "user-2", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "user-1", models.LoginRequest{}))
}

func TestAuthChangePasswordRevokesSessions(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedUser(repo, "user-1", "student@example.com", "secret123", models.RoleStudent, true)

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "evenmoresecret",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.revokedUsers, "user-1")

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.com",
		Password: "secret123",
	})
	require.Error(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.com",
		Password: "evenmoresecret",
	})
	require.NoError(t, err)
}

func TestAuthChangePasswordWrongOldPassword(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedUser(repo, "user-1", "student@example.com", "secret123", models.RoleStudent, true)

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "nope",
		NewPassword: "evenmoresecret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsTampering(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedUser(repo, "user-1", "student@example.com", "secret123", models.RoleStudent, true)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(login.AccessToken + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
