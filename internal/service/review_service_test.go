package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/learnsphere/academy-api/pkg/errors"

	"github.com/learnsphere/academy-api/internal/models"
)

type reviewRepoStub struct {
	reviews  map[string]*models.Review
	sequence int
}

func newReviewRepoStub() *reviewRepoStub {
	return &reviewRepoStub{reviews: make(map[string]*models.Review)}
}

func (r *reviewRepoStub) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error) {
	var out []models.Review
	for _, rev := range r.reviews {
		if filter.IsApproved != nil && rev.IsApproved != *filter.IsApproved {
			continue
		}
		out = append(out, *rev)
	}
	return out, len(out), nil
}

func (r *reviewRepoStub) FindByID(ctx context.Context, id string) (*models.Review, error) {
	if rev, ok := r.reviews[id]; ok {
		copy := *rev
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *reviewRepoStub) ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	for _, rev := range r.reviews {
		if rev.StudentID == studentID && rev.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (r *reviewRepoStub) Create(ctx context.Context, review *models.Review) error {
	r.sequence++
	review.ID = fmt.Sprintf("review-%d", r.sequence)
	copy := *review
	r.reviews[review.ID] = &copy
	return nil
}

func (r *reviewRepoStub) SetModeration(ctx context.Context, id string, approved, featured bool) error {
	rev, ok := r.reviews[id]
	if !ok {
		return sql.ErrNoRows
	}
	rev.IsApproved = approved
	rev.IsFeatured = featured
	return nil
}

func (r *reviewRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.reviews[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.reviews, id)
	return nil
}

func (r *reviewRepoStub) AverageRating(ctx context.Context, courseID string) (float64, error) {
	sum, count := 0, 0
	for _, rev := range r.reviews {
		if rev.CourseID == courseID && rev.IsApproved {
			sum += rev.Rating
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return float64(sum) / float64(count), nil
}

type liveEnrollmentStub struct {
	enrolled map[string]bool
}

func (r *liveEnrollmentStub) ExistsLive(ctx context.Context, studentID, courseID string) (bool, error) {
	return r.enrolled[studentID+"/"+courseID], nil
}

func newReviewFixture() (*ReviewService, *reviewRepoStub) {
	repo := newReviewRepoStub()
	enrollments := &liveEnrollmentStub{enrolled: map[string]bool{
		"student-1/course-1": true,
	}}
	return NewReviewService(repo, enrollments, nil, nil), repo
}

func TestReviewCreateStartsUnapproved(t *testing.T) {
	svc, _ := newReviewFixture()

	review, err := svc.Create(context.Background(), "student-1", CreateReviewRequest{
		CourseID: "course-1",
		Rating:   5,
		Comment:  "Excellent pacing.",
	})
	require.NoError(t, err)
	assert.False(t, review.IsApproved)
	assert.False(t, review.IsFeatured)
}

func TestReviewCreateRequiresLiveEnrollment(t *testing.T) {
	svc, _ := newReviewFixture()

	_, err := svc.Create(context.Background(), "student-2", CreateReviewRequest{
		CourseID: "course-1",
		Rating:   4,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReviewCreateOncePerCourse(t *testing.T) {
	svc, _ := newReviewFixture()

	_, err := svc.Create(context.Background(), "student-1", CreateReviewRequest{CourseID: "course-1", Rating: 5})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "student-1", CreateReviewRequest{CourseID: "course-1", Rating: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReviewCreateRatingOutOfRange(t *testing.T) {
	svc, _ := newReviewFixture()

	_, err := svc.Create(context.Background(), "student-1", CreateReviewRequest{CourseID: "course-1", Rating: 6})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReviewFeaturingImpliesApproval(t *testing.T) {
	svc, repo := newReviewFixture()

	review, err := svc.Create(context.Background(), "student-1", CreateReviewRequest{CourseID: "course-1", Rating: 5})
	require.NoError(t, err)

	moderated, err := svc.Moderate(context.Background(), review.ID, ModerateReviewRequest{Featured: true})
	require.NoError(t, err)
	assert.True(t, moderated.IsApproved)
	assert.True(t, moderated.IsFeatured)
	assert.True(t, repo.reviews[review.ID].IsApproved)
}

func TestReviewCourseRatingAveragesApprovedOnly(t *testing.T) {
	svc, repo := newReviewFixture()
	repo.reviews["review-a"] = &models.Review{ID: "review-a", CourseID: "course-1", StudentID: "s-a", Rating: 5, IsApproved: true}
	repo.reviews["review-b"] = &models.Review{ID: "review-b", CourseID: "course-1", StudentID: "s-b", Rating: 3, IsApproved: true}
	repo.reviews["review-c"] = &models.Review{ID: "review-c", CourseID: "course-1", StudentID: "s-c", Rating: 1}

	avg, err := svc.CourseRating(context.Background(), "course-1")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, avg, 0.001)
}

func TestReviewDeleteUnknown(t *testing.T) {
	svc, _ := newReviewFixture()

	err := svc.Delete(context.Background(), "review-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
