package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type contactRepository interface {
	List(ctx context.Context, status models.ContactStatus, page, pageSize int) ([]models.ContactMessage, int, error)
	FindByID(ctx context.Context, id string) (*models.ContactMessage, error)
	Create(ctx context.Context, message *models.ContactMessage) error
	UpdateStatus(ctx context.Context, id string, status models.ContactStatus) error
	Delete(ctx context.Context, id string) error
}

// CreateContactRequest is the public contact-form payload.
type CreateContactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// UpdateContactStatusRequest transitions the handling status.
type UpdateContactStatusRequest struct {
	Status models.ContactStatus `json:"status" validate:"required"`
}

// ContactService handles the public contact form inbox.
type ContactService struct {
	repo      contactRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContactService constructs the contact service.
func NewContactService(repo contactRepository, validate *validator.Validate, logger *zap.Logger) *ContactService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{repo: repo, validator: validate, logger: logger}
}

// List returns messages and pagination metadata.
func (s *ContactService) List(ctx context.Context, status models.ContactStatus, page, pageSize int) ([]models.ContactMessage, *models.Pagination, error) {
	messages, total, err := s.repo.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contact messages")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return messages, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a message by ID, marking NEW messages as READ.
func (s *ContactService) Get(ctx context.Context, id string) (*models.ContactMessage, error) {
	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contact message")
	}
	if message.Status == models.ContactStatusNew {
		if err := s.repo.UpdateStatus(ctx, id, models.ContactStatusRead); err != nil {
			s.logger.Warn("failed to mark contact message as read", zap.Error(err))
		} else {
			message.Status = models.ContactStatusRead
		}
	}
	return message, nil
}

// Create records an inbound message from the public form.
func (s *ContactService) Create(ctx context.Context, req CreateContactRequest) (*models.ContactMessage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}
	message := &models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
		Status:  models.ContactStatusNew,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contact message")
	}
	return message, nil
}

// UpdateStatus transitions the handling status of a message.
func (s *ContactService) UpdateStatus(ctx context.Context, id string, req UpdateContactStatusRequest) (*models.ContactMessage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	switch req.Status {
	case models.ContactStatusNew, models.ContactStatusRead, models.ContactStatusReplied:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown contact status")
	}

	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contact message")
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contact message")
	}
	message.Status = req.Status
	return message, nil
}

// Delete removes a message.
func (s *ContactService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "contact message not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contact message")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete contact message")
	}
	return nil
}
