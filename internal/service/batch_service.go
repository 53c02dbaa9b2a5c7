package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type batchRepository interface {
	List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	FindDetailByID(ctx context.Context, id string) (*models.BatchDetail, error)
	ExistsName(ctx context.Context, courseID, name, excludeID string) (bool, error)
	Create(ctx context.Context, batch *models.Batch) error
	Update(ctx context.Context, batch *models.Batch) error
	UpdateStatus(ctx context.Context, id string, status models.BatchStatus) error
	Delete(ctx context.Context, id string) error
}

type batchCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateBatchRequest holds payload for scheduling a batch.
type CreateBatchRequest struct {
	CourseID    string    `json:"course_id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
	Price       int64     `json:"price" validate:"gte=0"`
	MaxStudents int       `json:"max_students" validate:"required,gt=0"`
	MentorID    *string   `json:"mentor_id"`
}

// UpdateBatchRequest holds payload for updating a batch.
type UpdateBatchRequest struct {
	Name        string    `json:"name" validate:"required"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
	Price       int64     `json:"price" validate:"gte=0"`
	MaxStudents int       `json:"max_students" validate:"required,gt=0"`
	MentorID    *string   `json:"mentor_id"`
}

// UpdateBatchStatusRequest transitions the batch lifecycle.
type UpdateBatchStatusRequest struct {
	Status models.BatchStatus `json:"status" validate:"required"`
}

// BatchService handles batch scheduling use-cases.
type BatchService struct {
	repo      batchRepository
	courses   batchCourseRepository
	cache     catalogCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchService constructs the batch service.
func NewBatchService(repo batchRepository, courses batchCourseRepository, cache catalogCache, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{repo: repo, courses: courses, cache: cache, validator: validate, logger: logger}
}

// List returns batches and pagination metadata.
func (s *BatchService) List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, *models.Pagination, error) {
	batches, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return batches, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns detailed batch information.
func (s *BatchService) Get(ctx context.Context, id string) (*models.BatchDetail, error) {
	batch, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	return batch, nil
}

// Create schedules a new batch for a course. The end date must not
// precede the start date, and names are unique per course.
func (s *BatchService) Create(ctx context.Context, req CreateBatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	exists, err := s.repo.ExistsName(ctx, req.CourseID, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate batch name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "batch name already used for this course")
	}

	batch := &models.Batch{
		CourseID:    req.CourseID,
		Name:        req.Name,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Price:       req.Price,
		Status:      models.BatchStatusDraft,
		MaxStudents: req.MaxStudents,
		MentorID:    req.MentorID,
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
	}
	s.invalidate(ctx)
	return batch, nil
}

// Update modifies an existing batch. Capacity may not drop below the
// number of already claimed seats.
func (s *BatchService) Update(ctx context.Context, id string, req UpdateBatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	if req.MaxStudents < batch.CurrentStudents {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("capacity %d is below the %d seats already taken", req.MaxStudents, batch.CurrentStudents))
	}

	exists, err := s.repo.ExistsName(ctx, batch.CourseID, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate batch name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "batch name already used for this course")
	}

	batch.Name = req.Name
	batch.StartDate = req.StartDate
	batch.EndDate = req.EndDate
	batch.Price = req.Price
	batch.MaxStudents = req.MaxStudents
	batch.MentorID = req.MentorID
	if err := s.repo.Update(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update batch")
	}
	s.invalidate(ctx)
	return batch, nil
}

// UpdateStatus transitions the batch lifecycle.
func (s *BatchService) UpdateStatus(ctx context.Context, id string, req UpdateBatchStatusRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	switch req.Status {
	case models.BatchStatusDraft, models.BatchStatusPublished, models.BatchStatusUpcoming,
		models.BatchStatusOngoing, models.BatchStatusCompleted, models.BatchStatusCancelled:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown batch status")
	}

	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update batch status")
	}
	s.invalidate(ctx)
	batch.Status = req.Status
	return batch, nil
}

// Delete removes a batch. Batches with claimed seats cannot be removed.
func (s *BatchService) Delete(ctx context.Context, id string) error {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	if batch.CurrentStudents > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "batch has enrolled students")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete batch")
	}
	s.invalidate(ctx)
	return nil
}

func (s *BatchService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:*"); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}
