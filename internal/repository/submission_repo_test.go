package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/merit-go-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Submission{}, &models.CreditLedgerEntry{}, &models.AuditEvent{}))

	return db
}

func seedSubmission(t *testing.T, db *gorm.DB, studentID uint, status models.SubmissionStatus, submittedAt time.Time) models.Submission {
	t.Helper()

	submission := models.Submission{
		StudentID:       studentID,
		ActivityType:    "hackathon",
		Title:           "Regional hackathon finalist",
		ActivityDate:    submittedAt.AddDate(0, 0, -7),
		ExpectedCredits: 4,
		Status:          status,
		SubmittedAt:     submittedAt,
	}
	require.NoError(t, db.Create(&submission).Error)

	return submission
}

func TestSubmissionRepositoryCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	submission := models.Submission{
		StudentID:       7,
		ActivityType:    "volunteering",
		Title:           "Community library volunteering",
		ActivityDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ExpectedCredits: 2,
		Status:          models.SubmissionStatusPending,
		SubmittedAt:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, &submission))
	require.NotZero(t, submission.ID)

	fetched, err := repo.GetByID(ctx, submission.ID)
	require.NoError(t, err)
	require.Equal(t, uint(7), fetched.StudentID)
	require.Equal(t, models.SubmissionStatusPending, fetched.Status)
	require.Nil(t, fetched.ReviewerID)
}

func TestSubmissionRepositoryGetByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)

	_, err := repo.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionRepositoryUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	submission := seedSubmission(t, db, 7, models.SubmissionStatusUnderReview, time.Now().UTC())

	credits := 3.5
	decidedAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	updated, err := repo.UpdateStatus(ctx, submission.ID, models.SubmissionStatusUnderReview, models.SubmissionStatusApproved, DecisionFields{
		ReviewerID:     21,
		DecidedAt:      &decidedAt,
		AwardedCredits: &credits,
		Comments:       "evidence verified",
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusApproved, updated.Status)
	require.NotNil(t, updated.ReviewerID)
	require.Equal(t, uint(21), *updated.ReviewerID)
	require.NotNil(t, updated.AwardedCredits)
	require.Equal(t, 3.5, *updated.AwardedCredits)
	require.NotNil(t, updated.DecidedAt)
	require.Equal(t, "evidence verified", updated.Comments)
}

func TestSubmissionRepositoryUpdateStatusConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	submission := seedSubmission(t, db, 7, models.SubmissionStatusRejected, time.Now().UTC())

	// The stored status no longer matches the expected one.
	_, err := repo.UpdateStatus(ctx, submission.ID, models.SubmissionStatusUnderReview, models.SubmissionStatusApproved, DecisionFields{ReviewerID: 21})
	require.ErrorIs(t, err, ErrStatusConflict)

	fetched, err := repo.GetByID(ctx, submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusRejected, fetched.Status)
}

func TestSubmissionRepositoryUpdateStatusNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)

	_, err := repo.UpdateStatus(context.Background(), 404, models.SubmissionStatusPending, models.SubmissionStatusUnderReview, DecisionFields{ReviewerID: 21})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionRepositoryListOrderingAndFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	third := seedSubmission(t, db, 1, models.SubmissionStatusPending, base.Add(2*time.Hour))
	first := seedSubmission(t, db, 1, models.SubmissionStatusPending, base)
	second := seedSubmission(t, db, 2, models.SubmissionStatusApproved, base.Add(time.Hour))

	all, total, err := repo.List(ctx, SubmissionFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	require.Equal(t, []uint{first.ID, second.ID, third.ID}, []uint{all[0].ID, all[1].ID, all[2].ID})

	studentID := uint(1)
	mine, total, err := repo.List(ctx, SubmissionFilter{StudentID: &studentID})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, mine, 2)

	status := models.SubmissionStatusApproved
	approved, total, err := repo.List(ctx, SubmissionFilter{Status: &status})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, second.ID, approved[0].ID)
}

func TestSubmissionRepositoryListPagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedSubmission(t, db, 1, models.SubmissionStatusPending, base.Add(time.Duration(i)*time.Minute))
	}

	page, total, err := repo.List(ctx, SubmissionFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, page, 2)

	last, _, err := repo.List(ctx, SubmissionFilter{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, last, 1)
}
