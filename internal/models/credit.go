package models

import "time"

// CreditEntryKind distinguishes awards from their reversals.
type CreditEntryKind string

const (
	CreditEntryKindAward    CreditEntryKind = "award"
	CreditEntryKindReversal CreditEntryKind = "reversal"
)

// CreditLedgerEntry is one immutable row in the append-only credit ledger.
// Entries are never updated or deleted; a mistaken award is corrected by a
// reversal row carrying the negated amount. The composite unique index allows
// at most one award and one reversal per submission, which is the storage-level
// guard against double awards.
type CreditLedgerEntry struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	SubmissionID    uint            `gorm:"not null;uniqueIndex:idx_credit_submission_kind,priority:1" json:"submission_id"`
	Kind            CreditEntryKind `gorm:"size:16;not null;uniqueIndex:idx_credit_submission_kind,priority:2" json:"kind"`
	StudentID       uint            `gorm:"not null;index" json:"student_id"`
	Credits         float64         `gorm:"not null" json:"credits"`
	AwardedBy       uint            `gorm:"not null" json:"awarded_by"`
	Reason          string          `gorm:"type:text" json:"reason"`
	ReversesEntryID *uint           `gorm:"index" json:"reverses_entry_id"`
	AwardedAt       time.Time       `gorm:"not null;index" json:"awarded_at"`
	CreatedAt       time.Time       `json:"created_at"`
}
