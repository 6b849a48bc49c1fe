package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/merit-go-api/internal/models"
)

// ErrStatusConflict indicates a compare-and-set update lost against a concurrent
// transition: the stored status no longer matched the expected one.
var ErrStatusConflict = errors.New("submission status changed concurrently")

// SubmissionFilter narrows submission queries.
type SubmissionFilter struct {
	StudentID  *uint
	ReviewerID *uint
	Status     *models.SubmissionStatus
	Page       int
	PageSize   int
}

// DecisionFields carries the reviewer-controlled columns written together with a
// status change. AwardedCredits must be nil unless the target status is approved.
type DecisionFields struct {
	ReviewerID     uint
	DecidedAt      *time.Time
	AwardedCredits *float64
	Comments       string
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error)
	// UpdateStatus performs an atomic conditional update: it succeeds only if the
	// stored status still equals expected at the moment of the UPDATE. A lost race
	// returns ErrStatusConflict; a missing row returns gorm.ErrRecordNotFound.
	UpdateStatus(ctx context.Context, id uint, expected, target models.SubmissionStatus, fields DecisionFields) (models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.ReviewerID != nil {
		query = query.Where("reviewer_id = ?", *filter.ReviewerID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at ASC").Order("id ASC").Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, id uint, expected, target models.SubmissionStatus, fields DecisionFields) (models.Submission, error) {
	updates := map[string]interface{}{
		"status":          target,
		"reviewer_id":     fields.ReviewerID,
		"decided_at":      fields.DecidedAt,
		"awarded_credits": fields.AwardedCredits,
		"comments":        fields.Comments,
	}

	result := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return models.Submission{}, result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return models.Submission{}, err
		}
		if count == 0 {
			return models.Submission{}, gorm.ErrRecordNotFound
		}
		return models.Submission{}, ErrStatusConflict
	}

	return r.GetByID(ctx, id)
}
