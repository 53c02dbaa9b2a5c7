package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	Deactivate(ctx context.Context, ids []string) (int, error)
	CountActiveAdmins(ctx context.Context, excludeIDs []string) (int, error)
	CreateStudentProfile(ctx context.Context, profile *models.StudentProfile) error
	FindStudentProfile(ctx context.Context, userID string) (*models.StudentProfile, error)
	NextStudentSequence(ctx context.Context) (int64, error)
	UpsertMentorProfile(ctx context.Context, profile *models.MentorProfile) error
	ListMentors(ctx context.Context) ([]models.UserDetail, error)
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

type userAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateUserRequest is the admin payload for creating any account.
type CreateUserRequest struct {
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,min=6"`
	FullName  string          `json:"full_name" validate:"required"`
	Role      models.UserRole `json:"role" validate:"required"`
	Phone     string          `json:"phone"`
	Address   string          `json:"address"`
	Expertise string          `json:"expertise"`
	Bio       string          `json:"bio"`
}

// UpdateUserRequest is the admin payload for updating an account.
type UpdateUserRequest struct {
	FullName  string          `json:"full_name" validate:"required"`
	Role      models.UserRole `json:"role" validate:"required"`
	Active    bool            `json:"active"`
	Expertise string          `json:"expertise"`
	Bio       string          `json:"bio"`
	Phone     string          `json:"phone"`
}

// BulkDeactivateRequest deactivates many accounts at once.
type BulkDeactivateRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// UserService handles account administration. Every destructive path
// checks that at least one active admin remains.
type UserService struct {
	repo      userRepository
	audit     userAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the user service.
func NewUserService(repo userRepository, audit userAuditRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a user with any attached profile.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserDetail, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	detail := &models.UserDetail{User: *user}
	if user.Role == models.RoleStudent {
		profile, err := s.repo.FindStudentProfile(ctx, id)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
		}
		if profile != nil {
			detail.StudentCode = &profile.StudentCode
		}
	}
	return detail, nil
}

// ListMentors returns all mentor accounts with their profiles.
func (s *UserService) ListMentors(ctx context.Context) ([]models.UserDetail, error) {
	mentors, err := s.repo.ListMentors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentors")
	}
	return mentors, nil
}

// Create registers a new account of any role, attaching the matching
// profile for students and mentors.
func (s *UserService) Create(ctx context.Context, adminID string, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !validRole(req.Role) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	switch req.Role {
	case models.RoleStudent:
		seq, err := s.repo.NextStudentSequence(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate student code")
		}
		if err := s.repo.CreateStudentProfile(ctx, &models.StudentProfile{
			UserID:      user.ID,
			StudentCode: fmt.Sprintf("STU-%d-%05d", time.Now().UTC().Year(), seq),
			Phone:       req.Phone,
			Address:     req.Address,
		}); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student profile")
		}
	case models.RoleMentor:
		if err := s.repo.UpsertMentorProfile(ctx, &models.MentorProfile{
			UserID:    user.ID,
			Expertise: req.Expertise,
			Bio:       req.Bio,
			Phone:     req.Phone,
		}); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mentor profile")
		}
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  []byte(fmt.Sprintf(`{"email":%q,"role":%q}`, user.Email, user.Role)),
	}); err != nil {
		s.logger.Warn("failed to record user creation audit log", zap.Error(err))
	}

	return user, nil
}

// Update modifies an account. Demoting or deactivating the last active
// admin is refused.
func (s *UserService) Update(ctx context.Context, adminID, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !validRole(req.Role) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	losesAdmin := user.Role == models.RoleAdmin && user.Active &&
		(req.Role != models.RoleAdmin || !req.Active)
	if losesAdmin {
		if err := s.ensureNotLastAdmin(ctx, []string{id}); err != nil {
			return nil, err
		}
	}

	oldRole := user.Role
	user.FullName = req.FullName
	user.Role = req.Role
	user.Active = req.Active
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	if req.Role == models.RoleMentor {
		if err := s.repo.UpsertMentorProfile(ctx, &models.MentorProfile{
			UserID:    id,
			Expertise: req.Expertise,
			Bio:       req.Bio,
			Phone:     req.Phone,
		}); err != nil {
			s.logger.Warn("failed to upsert mentor profile", zap.Error(err))
		}
	}

	if !req.Active {
		if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
			s.logger.Warn("failed to revoke sessions of deactivated user", zap.Error(err))
		}
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: &id,
		OldValues:  []byte(fmt.Sprintf(`{"role":%q}`, oldRole)),
		NewValues:  []byte(fmt.Sprintf(`{"role":%q,"active":%t}`, req.Role, req.Active)),
	}); err != nil {
		s.logger.Warn("failed to record user update audit log", zap.Error(err))
	}

	return user, nil
}

// Delete removes an account. The last active admin cannot be deleted.
func (s *UserService) Delete(ctx context.Context, adminID, id string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if user.Role == models.RoleAdmin && user.Active {
		if err := s.ensureNotLastAdmin(ctx, []string{id}); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionUserDelete,
		Resource:   "users",
		ResourceID: &id,
		OldValues:  []byte(fmt.Sprintf(`{"email":%q,"role":%q}`, user.Email, user.Role)),
	}); err != nil {
		s.logger.Warn("failed to record user deletion audit log", zap.Error(err))
	}

	return nil
}

// BulkDeactivate deactivates many accounts, refusing when the set would
// remove every active admin.
func (s *UserService) BulkDeactivate(ctx context.Context, adminID string, req BulkDeactivateRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deactivation payload")
	}

	if err := s.ensureNotLastAdmin(ctx, req.IDs); err != nil {
		return 0, err
	}

	affected, err := s.repo.Deactivate(ctx, req.IDs)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate users")
	}

	for _, id := range req.IDs {
		if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
			s.logger.Warn("failed to revoke sessions of deactivated user", zap.String("user_id", id), zap.Error(err))
		}
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    &adminID,
		Action:    models.AuditActionUserUpdate,
		Resource:  "users",
		NewValues: []byte(fmt.Sprintf(`{"deactivated":%d}`, affected)),
	}); err != nil {
		s.logger.Warn("failed to record bulk deactivation audit log", zap.Error(err))
	}

	return affected, nil
}

func (s *UserService) ensureNotLastAdmin(ctx context.Context, excludeIDs []string) error {
	remaining, err := s.repo.CountActiveAdmins(ctx, excludeIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active admins")
	}
	if remaining == 0 {
		return appErrors.Clone(appErrors.ErrLastAdmin, "at least one active admin must remain")
	}
	return nil
}

func validRole(role models.UserRole) bool {
	switch role {
	case models.RoleAdmin, models.RoleMentor, models.RoleStudent, models.RoleMarketing, models.RoleSupport:
		return true
	}
	return false
}
