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

type reviewRepository interface {
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error)
	FindByID(ctx context.Context, id string) (*models.Review, error)
	ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, review *models.Review) error
	SetModeration(ctx context.Context, id string, approved, featured bool) error
	Delete(ctx context.Context, id string) error
	AverageRating(ctx context.Context, courseID string) (float64, error)
}

type reviewEnrollmentRepository interface {
	ExistsLive(ctx context.Context, studentID, courseID string) (bool, error)
}

// CreateReviewRequest is the student payload for reviewing a course.
type CreateReviewRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Comment  string `json:"comment"`
}

// ModerateReviewRequest flips the moderation flags.
type ModerateReviewRequest struct {
	Approved bool `json:"approved"`
	Featured bool `json:"featured"`
}

// ReviewService handles course reviews with moderation. Only students
// holding a live enrollment for the course may review it, once each.
type ReviewService struct {
	repo        reviewRepository
	enrollments reviewEnrollmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewReviewService constructs the review service.
func NewReviewService(repo reviewRepository, enrollments reviewEnrollmentRepository, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// List returns reviews and pagination metadata.
func (s *ReviewService) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, *models.Pagination, error) {
	reviews, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return reviews, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create records an unapproved review from an enrolled student.
func (s *ReviewService) Create(ctx context.Context, studentID string, req CreateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	enrolled, err := s.enrollments.ExistsLive(ctx, studentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only enrolled students can review a course")
	}

	exists, err := s.repo.ExistsByStudentAndCourse(ctx, studentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing review")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course already reviewed")
	}

	review := &models.Review{
		CourseID:  req.CourseID,
		StudentID: studentID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}
	return review, nil
}

// Moderate approves, features or hides a review.
func (s *ReviewService) Moderate(ctx context.Context, id string, req ModerateReviewRequest) (*models.Review, error) {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}

	// Featuring implies approval.
	approved := req.Approved || req.Featured
	if err := s.repo.SetModeration(ctx, id, approved, req.Featured); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to moderate review")
	}
	review.IsApproved = approved
	review.IsFeatured = req.Featured
	return review, nil
}

// Delete removes a review.
func (s *ReviewService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}
	return nil
}

// CourseRating returns the average approved rating for a course.
func (s *ReviewService) CourseRating(ctx context.Context, courseID string) (float64, error) {
	avg, err := s.repo.AverageRating(ctx, courseID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute course rating")
	}
	return avg, nil
}
