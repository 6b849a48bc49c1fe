package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatus enumerates the lifecycle states of an activity submission.
type SubmissionStatus string

const (
	// SubmissionStatusPending indicates the submission awaits faculty attention.
	SubmissionStatusPending SubmissionStatus = "pending"
	// SubmissionStatusUnderReview indicates a reviewer has picked up the submission.
	SubmissionStatusUnderReview SubmissionStatus = "under_review"
	// SubmissionStatusApproved indicates credit was awarded. Terminal.
	SubmissionStatusApproved SubmissionStatus = "approved"
	// SubmissionStatusRejected indicates the claim was declined. Terminal.
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// Valid reports whether the value is a known status.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusUnderReview, SubmissionStatusApproved, SubmissionStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from the status.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusRejected
}

// CanTransitionTo reports whether the state machine permits moving to target.
// Pending may go straight to a decision or via under_review; decisions are final.
func (s SubmissionStatus) CanTransitionTo(target SubmissionStatus) bool {
	switch s {
	case SubmissionStatusPending:
		return target == SubmissionStatusUnderReview ||
			target == SubmissionStatusApproved ||
			target == SubmissionStatusRejected
	case SubmissionStatusUnderReview:
		return target == SubmissionStatusApproved || target == SubmissionStatusRejected
	default:
		return false
	}
}

// Submission represents a single student claim of an extracurricular activity.
// Terminal submissions are never reopened; a resubmission is a new row whose
// SupersedesID points at the rejected original.
type Submission struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	StudentID       uint                        `gorm:"not null;index" json:"student_id"`
	ActivityType    string                      `gorm:"size:64;not null" json:"activity_type"`
	Title           string                      `gorm:"size:255;not null" json:"title"`
	Description     string                      `gorm:"type:text" json:"description"`
	ActivityDate    time.Time                   `gorm:"not null" json:"activity_date"`
	Institution     string                      `gorm:"size:255" json:"institution"`
	ExpectedCredits float64                     `gorm:"not null" json:"expected_credits"`
	Documents       datatypes.JSONSlice[string] `gorm:"type:json" json:"documents"`
	Status          SubmissionStatus            `gorm:"size:32;not null;index" json:"status"`
	ReviewerID      *uint                       `gorm:"index" json:"reviewer_id"`
	DecidedAt       *time.Time                  `json:"decided_at"`
	AwardedCredits  *float64                    `json:"awarded_credits"`
	Comments        string                      `gorm:"type:text" json:"comments"`
	AuditFlags      datatypes.JSONSlice[string] `gorm:"type:json" json:"audit_flags"`
	SupersedesID    *uint                       `gorm:"index" json:"supersedes_id"`
	SubmittedAt     time.Time                   `gorm:"not null;index" json:"submitted_at"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// Decided reports whether the submission has reached a terminal decision.
func (s Submission) Decided() bool {
	return s.Status.Terminal()
}
