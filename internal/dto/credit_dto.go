package dto

import (
	"time"

	"github.com/noah-isme/merit-go-api/internal/models"
)

// CreditReversalRequest asks for a correction of a previously awarded entry.
type CreditReversalRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=255"`
}

// CreditEntryResponse serializes one ledger row.
type CreditEntryResponse struct {
	ID              uint      `json:"id"`
	SubmissionID    uint      `json:"submission_id"`
	Kind            string    `json:"kind"`
	StudentID       uint      `json:"student_id"`
	Credits         float64   `json:"credits"`
	AwardedBy       uint      `json:"awarded_by"`
	Reason          string    `json:"reason,omitempty"`
	ReversesEntryID *uint     `json:"reverses_entry_id,omitempty"`
	AwardedAt       time.Time `json:"awarded_at"`
}

// StudentCreditsResponse reports a student's total plus the backing entries.
type StudentCreditsResponse struct {
	StudentID    uint                  `json:"student_id"`
	TotalCredits float64               `json:"total_credits"`
	Entries      []CreditEntryResponse `json:"entries"`
	CacheHit     bool                  `json:"-"`
}

// NewCreditEntryResponse converts a ledger entry model into a DTO.
func NewCreditEntryResponse(model models.CreditLedgerEntry) CreditEntryResponse {
	return CreditEntryResponse{
		ID:              model.ID,
		SubmissionID:    model.SubmissionID,
		Kind:            string(model.Kind),
		StudentID:       model.StudentID,
		Credits:         model.Credits,
		AwardedBy:       model.AwardedBy,
		Reason:          model.Reason,
		ReversesEntryID: model.ReversesEntryID,
		AwardedAt:       model.AwardedAt,
	}
}
