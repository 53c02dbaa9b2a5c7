package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type userRepoStub struct {
	users           map[string]*models.User
	studentProfiles map[string]*models.StudentProfile
	mentorProfiles  map[string]*models.MentorProfile
	revoked         []string
	sequence        int64
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{
		users:           make(map[string]*models.User),
		studentProfiles: make(map[string]*models.StudentProfile),
		mentorProfiles:  make(map[string]*models.MentorProfile),
	}
}

func (r *userRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	result := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		result = append(result, *u)
	}
	return result, len(result), nil
}

func (r *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepoStub) Create(ctx context.Context, user *models.User) error {
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *userRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

func (r *userRepoStub) Deactivate(ctx context.Context, ids []string) (int, error) {
	affected := 0
	for _, id := range ids {
		if u, ok := r.users[id]; ok && u.Active {
			u.Active = false
			affected++
		}
	}
	return affected, nil
}

func (r *userRepoStub) CountActiveAdmins(ctx context.Context, excludeIDs []string) (int, error) {
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	count := 0
	for _, u := range r.users {
		if u.Role == models.RoleAdmin && u.Active && !excluded[u.ID] {
			count++
		}
	}
	return count, nil
}

func (r *userRepoStub) CreateStudentProfile(ctx context.Context, profile *models.StudentProfile) error {
	r.studentProfiles[profile.UserID] = profile
	return nil
}

func (r *userRepoStub) FindStudentProfile(ctx context.Context, userID string) (*models.StudentProfile, error) {
	if p, ok := r.studentProfiles[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) NextStudentSequence(ctx context.Context) (int64, error) {
	r.sequence++
	return r.sequence, nil
}

func (r *userRepoStub) UpsertMentorProfile(ctx context.Context, profile *models.MentorProfile) error {
	r.mentorProfiles[profile.UserID] = profile
	return nil
}

func (r *userRepoStub) ListMentors(ctx context.Context) ([]models.UserDetail, error) {
	var result []models.UserDetail
	for _, u := range r.users {
		if u.Role == models.RoleMentor {
			result = append(result, models.UserDetail{User: *u})
		}
	}
	return result, nil
}

func (r *userRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	r.revoked = append(r.revoked, userID)
	return nil
}

func newUserFixture() (*UserService, *userRepoStub, *auditStub) {
	repo := newUserRepoStub()
	audit := &auditStub{}
	svc := NewUserService(repo, audit, nil, nil)
	return svc, repo, audit
}

func TestUserCreateStudentAllocatesCode(t *testing.T) {
	svc, repo, audit := newUserFixture()

	user, err := svc.Create(context.Background(), "admin-1", CreateUserRequest{
		Email:    "student@example.com",
		Password: "secret123",
		FullName: "New Student",
		Role:     models.RoleStudent,
		Phone:    "01700000000",
	})
	require.NoError(t, err)
	assert.True(t, user.Active)

	profile := repo.studentProfiles[user.ID]
	require.NotNil(t, profile)
	assert.Contains(t, profile.StudentCode, "STU-")
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionUserCreate, audit.logs[0].Action)
}

func TestUserCreateMentorAttachesProfile(t *testing.T) {
	svc, repo, _ := newUserFixture()

	user, err := svc.Create(context.Background(), "admin-1", CreateUserRequest{
		Email:     "mentor@example.com",
		Password:  "secret123",
		FullName:  "New Mentor",
		Role:      models.RoleMentor,
		Expertise: "Distributed systems",
	})
	require.NoError(t, err)

	profile := repo.mentorProfiles[user.ID]
	require.NotNil(t, profile)
	assert.Equal(t, "Distributed systems", profile.Expertise)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	svc, repo, _ := newUserFixture()
	repo.users["user-1"] = &models.User{ID: "user-1", Email: "taken@example.com", Role: models.RoleStudent, Active: true}

	_, err := svc.Create(context.Background(), "admin-1", CreateUserRequest{
		Email:    "Taken@Example.com",
		Password: "secret123",
		FullName: "Someone",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserCreateUnknownRole(t *testing.T) {
	svc, _, _ := newUserFixture()

	_, err := svc.Create(context.Background(), "admin-1", CreateUserRequest{
		Email:    "x@example.com",
		Password: "secret123",
		FullName: "Someone",
		Role:     models.UserRole("SUPERUSER"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateDemoteLastAdminRefused(t *testing.T) {
	svc, repo, _ := newUserFixture()
	repo.users["admin-1"] = &models.User{ID: "admin-1", Email: "admin@example.com", FullName: "Only Admin", Role: models.RoleAdmin, Active: true}

	_, err := svc.Update(context.Background(), "admin-1", "admin-1", UpdateUserRequest{
		FullName: "Only Admin",
		Role:     models.RoleSupport,
		Active:   true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLastAdmin.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateDemoteAdminWithAnotherRemaining(t *testing.T) {
	svc, repo, _ := newUserFixture()
	repo.users["admin-1"] = &models.User{ID: "admin-1", Email: "a1@example.com", FullName: "Admin One", Role: models.RoleAdmin, Active: true}
	repo.users["admin-2"] = &models.User{ID: "admin-2", Email: "a2@example.com", FullName: "Admin Two", Role: models.RoleAdmin, Active: true}

	updated, err := svc.Update(context.Background(), "admin-2", "admin-1", UpdateUserRequest{
		FullName: "Admin One",
		Role:     models.RoleSupport,
		Active:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSupport, updated.Role)
}

func TestUserUpdateDeactivateRevokesSessions(t *testing.T) {
	svc, repo, _ := newUserFixture()
	repo.users["admin-1"] = &models.User{ID: "admin-1", Email: "a1@example.com", FullName: "Admin", Role: models.RoleAdmin, Active: true}
	repo.users["user-1"] = &models.User{ID: "user-1", Email: "u1@example.com", FullName: "Student", Role: models.RoleStudent, Active: true}

	updated, err := svc.Update(context.Background(), "admin-1", "user-1", UpdateUserRequest{
		FullName: "Student",
		Role:     models.RoleStudent,
		Active:   false,
	})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Contains(t, repo.revoked, "user-1")
}

func TestUserDeleteLastAdminRefused(t *testing.T) {
	svc, repo, _ := newUserFixture()
	repo.users["admin-1"] = &models.User{ID: "admin-1", Email: "a@example.com", Role: models.RoleAdmin, Active: true}

	err := svc.Delete(context.Background(), "admin-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLastAdmin.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.users, 1)
}

func TestUserDeleteStudentAllowed(t *testing.T) {
	svc, repo, audit := newUserFixture()
	repo.users["admin-1"] = &models.User{ID: "admin-1", Email: "a@example.com", Role: models.RoleAdmin, Active: true}
	repo.users["user-1"] = &models.User{ID: "user-1", Email: "s@example.com", Role: models.RoleStudent, Active: true}

	err := svc.Delete(context.Background(), "admin-1", "user-1")
	require.NoError(t, err)
	assert.NotContains(t, repo.users, "user-1")
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionUserDelete, audit.logs[0].Action)
}

func TestUserBulkDeactivateKeepsOneAdmin(t *testing.T) {
	svc, repo, _ := newUserFixture()
	repo.users["admin-1"] = &models.User{ID: "admin-1", Email: "a1@example.com", Role: models.RoleAdmin, Active: true}
	repo.users["admin-2"] = &models.User{ID: "admin-2", Email: "a2@example.com", Role: models.RoleAdmin, Active: true}

	_, err := svc.BulkDeactivate(context.Background(), "admin-1", BulkDeactivateRequest{
		IDs: []string{"admin-1", "admin-2"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLastAdmin.Code, appErrors.FromError(err).Code)
	assert.True(t, repo.users["admin-1"].Active)
	assert.True(t, repo.users["admin-2"].Active)
}

func TestUserBulkDeactivatePartialSet(t *testing.T) {
	svc, repo, _ := newUserFixture()
	repo.users["admin-1"] = &models.User{ID: "admin-1", Email: "a1@example.com", Role: models.RoleAdmin, Active: true}
	repo.users["user-1"] = &models.User{ID: "user-1", Email: "u1@example.com", Role: models.RoleStudent, Active: true}
	repo.users["user-2"] = &models.User{ID: "user-2", Email: "u2@example.com", Role: models.RoleStudent, Active: true}

	affected, err := svc.BulkDeactivate(context.Background(), "admin-1", BulkDeactivateRequest{
		IDs: []string{"user-1", "user-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, affected)
	assert.False(t, repo.users["user-1"].Active)
	assert.ElementsMatch(t, []string{"user-1", "user-2"}, repo.revoked)
}

func TestUserGetStudentIncludesCode(t *testing.T) {
	svc, repo, _ := newUserFixture()
	repo.users["user-1"] = &models.User{ID: "user-1", Email: "s@example.com", Role: models.RoleStudent, Active: true}
	repo.studentProfiles["user-1"] = &models.StudentProfile{UserID: "user-1", StudentCode: "STU-2026-00042"}

	detail, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, detail.StudentCode)
	assert.Equal(t, "STU-2026-00042", *detail.StudentCode)
}
