package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/merit-go-api/internal/dto"
	"github.com/noah-isme/merit-go-api/internal/models"
	"github.com/noah-isme/merit-go-api/internal/repository"
)

// Resource type labels used in audit events.
const (
	ResourceTypeSubmission  = "submission"
	ResourceTypeCreditEntry = "credit_entry"
)

var (
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrNotAllowed indicates the authorization guard denied the action.
	ErrNotAllowed = errors.New("action not allowed")
	// ErrResubmitNotRejected indicates a resubmission targeted a submission that
	// is not in the rejected state.
	ErrResubmitNotRejected = errors.New("only rejected submissions can be resubmitted")
)

// SubmissionService manages the lifecycle of submission records outside of
// status transitions (which belong to the workflow engine).
type SubmissionService interface {
	Create(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Resubmit(ctx context.Context, actor Actor, originalID uint, payload dto.SubmissionResubmitRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, actor Actor, filter dto.SubmissionFilter) (dto.SubmissionListResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	guard       AuthorizationGuard
	audit       AuditRecorder
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(repo repository.SubmissionRepository, guard AuthorizationGuard, audit AuditRecorder, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: repo,
		guard:       guard,
		audit:       audit,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Create(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if decision := s.guard.Check(actor.Role, ActionCreateSubmission, actor.ID, actor.ID); !decision.Allowed {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %s", ErrNotAllowed, decision.Reason)
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if payload.SupersedesID != nil {
		if err := s.checkSupersedes(ctx, actor, *payload.SupersedesID); err != nil {
			return dto.SubmissionResponse{}, err
		}
	}

	submission := models.Submission{
		StudentID:       actor.ID,
		ActivityType:    s.sanitizer.Sanitize(payload.ActivityType),
		Title:           s.sanitizer.Sanitize(payload.Title),
		Description:     s.sanitizer.Sanitize(payload.Description),
		ActivityDate:    payload.ActivityDate,
		Institution:     s.sanitizer.Sanitize(payload.Institution),
		ExpectedCredits: payload.ExpectedCredits,
		Documents:       datatypes.JSONSlice[string](payload.Documents),
		Status:          models.SubmissionStatusPending,
		SupersedesID:    payload.SupersedesID,
		SubmittedAt:     s.now(),
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.recordCreated(ctx, actor, submission)
	s.logger.Info().Uint("submission_id", submission.ID).Uint("student_id", actor.ID).Msg("submission created")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Resubmit(ctx context.Context, actor Actor, originalID uint, payload dto.SubmissionResubmitRequest) (dto.SubmissionResponse, error) {
	if decision := s.guard.Check(actor.Role, ActionCreateSubmission, actor.ID, actor.ID); !decision.Allowed {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %s", ErrNotAllowed, decision.Reason)
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	original, err := s.submissions.GetByID(ctx, originalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if original.StudentID != actor.ID {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: students may only resubmit their own submissions", ErrNotAllowed)
	}

	if original.Status != models.SubmissionStatusRejected {
		return dto.SubmissionResponse{}, ErrResubmitNotRejected
	}

	// The rejected record stays untouched; the resubmission is a fresh pending
	// row chained through supersedes_id.
	submission := models.Submission{
		StudentID:       original.StudentID,
		ActivityType:    original.ActivityType,
		Title:           original.Title,
		Description:     original.Description,
		ActivityDate:    original.ActivityDate,
		Institution:     original.Institution,
		ExpectedCredits: original.ExpectedCredits,
		Documents:       original.Documents,
		Status:          models.SubmissionStatusPending,
		SupersedesID:    &original.ID,
		SubmittedAt:     s.now(),
	}

	if payload.Title != nil {
		submission.Title = s.sanitizer.Sanitize(*payload.Title)
	}
	if payload.Description != nil {
		submission.Description = s.sanitizer.Sanitize(*payload.Description)
	}
	if payload.ExpectedCredits != nil {
		submission.ExpectedCredits = *payload.ExpectedCredits
	}
	if len(payload.Documents) > 0 {
		submission.Documents = datatypes.JSONSlice[string](payload.Documents)
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.recordCreated(ctx, actor, submission)
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("supersedes_id", original.ID).
		Msg("submission resubmitted")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	action := ActionViewAnySubmission
	if actor.Role == RoleStudent {
		action = ActionViewOwnSubmission
	}
	if decision := s.guard.Check(actor.Role, action, submission.StudentID, actor.ID); !decision.Allowed {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %s", ErrNotAllowed, decision.Reason)
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) List(ctx context.Context, actor Actor, filter dto.SubmissionFilter) (dto.SubmissionListResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return dto.SubmissionListResponse{}, err
	}

	repoFilter := repository.SubmissionFilter{
		StudentID:  filter.StudentID,
		ReviewerID: filter.ReviewerID,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	}
	if filter.Status != nil {
		status := models.SubmissionStatus(*filter.Status)
		repoFilter.Status = &status
	}

	// Students only ever see their own submissions, whatever the filter says.
	if actor.Role == RoleStudent {
		repoFilter.StudentID = &actor.ID
	}

	submissions, total, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(filter.Page, 1),
		PageSize:   filter.PageSize,
		TotalItems: total,
		TotalPages: 1,
	}
	if filter.PageSize > 0 {
		pagination.TotalPages = int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	}

	return dto.SubmissionListResponse{
		Items:      dto.NewSubmissionResponseSlice(submissions),
		Pagination: pagination,
	}, nil
}

func (s *submissionService) checkSupersedes(ctx context.Context, actor Actor, originalID uint) error {
	original, err := s.submissions.GetByID(ctx, originalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("superseded submission: %w", ErrSubmissionNotFound)
		}
		return err
	}

	if original.StudentID != actor.ID {
		return fmt.Errorf("%w: superseded submission belongs to another student", ErrNotAllowed)
	}

	if original.Status != models.SubmissionStatusRejected {
		return ErrResubmitNotRejected
	}

	return nil
}

func (s *submissionService) recordCreated(ctx context.Context, actor Actor, submission models.Submission) {
	metadata := map[string]interface{}{
		"activity_type":    submission.ActivityType,
		"expected_credits": submission.ExpectedCredits,
	}
	if submission.SupersedesID != nil {
		metadata["supersedes_id"] = *submission.SupersedesID
	}

	if _, err := s.audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Action:       models.AuditActionSubmissionCreated,
		ResourceType: ResourceTypeSubmission,
		ResourceID:   &submission.ID,
		Severity:     models.AuditSeverityInfo,
		Details:      "submission created",
		Metadata:     metadata,
	}); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to audit submission creation")
	}
}
