package dto

import (
	"time"

	"github.com/noah-isme/merit-go-api/internal/models"
)

// SubmissionCreateRequest describes the payload for a new activity claim. The
// student identity comes from the authenticated actor, never from the body.
type SubmissionCreateRequest struct {
	ActivityType    string    `json:"activity_type" validate:"required,min=2,max=64"`
	Title           string    `json:"title" validate:"required,min=3,max=255"`
	Description     string    `json:"description" validate:"omitempty,max=4000"`
	ActivityDate    time.Time `json:"activity_date" validate:"required"`
	Institution     string    `json:"institution" validate:"omitempty,max=255"`
	ExpectedCredits float64   `json:"expected_credits" validate:"gte=0"`
	Documents       []string  `json:"documents" validate:"omitempty,dive,max=512"`
	SupersedesID    *uint     `json:"supersedes_id" validate:"omitempty,gt=0"`
}

// SubmissionResubmitRequest carries the optional field overrides when a student
// resubmits a rejected claim. Unset fields are copied from the original.
type SubmissionResubmitRequest struct {
	Title           *string  `json:"title" validate:"omitempty,min=3,max=255"`
	Description     *string  `json:"description" validate:"omitempty,max=4000"`
	ExpectedCredits *float64 `json:"expected_credits" validate:"omitempty,gte=0"`
	Documents       []string `json:"documents" validate:"omitempty,dive,max=512"`
}

// TransitionRequest asks the workflow engine to move a submission to a new state.
type TransitionRequest struct {
	TargetStatus string   `json:"target_status" validate:"required,oneof=under_review approved rejected"`
	Credits      *float64 `json:"credits" validate:"omitempty,gte=0"`
	Comments     string   `json:"comments" validate:"omitempty,max=4000"`
	// Override lets an administrator force a transition the state machine would
	// refuse. Always audited at warning severity.
	Override bool `json:"override"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	StudentID  *uint   `query:"student_id"`
	ReviewerID *uint   `query:"reviewer_id"`
	Status     *string `query:"status" validate:"omitempty,oneof=pending under_review approved rejected"`
	Page       int     `query:"page" validate:"omitempty,gte=1"`
	PageSize   int     `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID              uint       `json:"id"`
	StudentID       uint       `json:"student_id"`
	ActivityType    string     `json:"activity_type"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ActivityDate    time.Time  `json:"activity_date"`
	Institution     string     `json:"institution"`
	ExpectedCredits float64    `json:"expected_credits"`
	Documents       []string   `json:"documents"`
	Status          string     `json:"status"`
	ReviewerID      *uint      `json:"reviewer_id"`
	DecidedAt       *time.Time `json:"decided_at"`
	AwardedCredits  *float64   `json:"awarded_credits"`
	Comments        string     `json:"comments"`
	AuditFlags      []string   `json:"audit_flags"`
	SupersedesID    *uint      `json:"supersedes_id"`
	SubmittedAt     time.Time  `json:"submitted_at"`
}

// SubmissionListResponse wraps a page of submissions.
type SubmissionListResponse struct {
	Items      []SubmissionResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:              model.ID,
		StudentID:       model.StudentID,
		ActivityType:    model.ActivityType,
		Title:           model.Title,
		Description:     model.Description,
		ActivityDate:    model.ActivityDate,
		Institution:     model.Institution,
		ExpectedCredits: model.ExpectedCredits,
		Documents:       []string(model.Documents),
		Status:          string(model.Status),
		ReviewerID:      model.ReviewerID,
		DecidedAt:       model.DecidedAt,
		AwardedCredits:  model.AwardedCredits,
		Comments:        model.Comments,
		AuditFlags:      []string(model.AuditFlags),
		SupersedesID:    model.SupersedesID,
		SubmittedAt:     model.SubmittedAt,
	}
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
