package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditAction enumerates the recorded workflow actions.
type AuditAction string

const (
	AuditActionSubmissionCreated   AuditAction = "submission.created"
	AuditActionTransitionRequested AuditAction = "transition.requested"
	AuditActionTransitionApplied   AuditAction = "transition.applied"
	AuditActionTransitionRejected  AuditAction = "transition.rejected"
	AuditActionCreditAwarded       AuditAction = "credit.awarded"
	AuditActionCreditReversed      AuditAction = "credit.reversed"
)

// AuditSeverity classifies audit events for filtering.
type AuditSeverity string

const (
	AuditSeverityInfo    AuditSeverity = "info"
	AuditSeverityWarning AuditSeverity = "warning"
	AuditSeverityError   AuditSeverity = "error"
)

// AuditEvent is one immutable row in the append-only audit trail.
type AuditEvent struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	ActorID      uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole    string            `gorm:"size:32;not null" json:"actor_role"`
	Action       AuditAction       `gorm:"size:64;not null;index" json:"action"`
	ResourceType string            `gorm:"size:64;not null;index" json:"resource_type"`
	ResourceID   *uint             `gorm:"index" json:"resource_id"`
	Severity     AuditSeverity     `gorm:"size:16;not null;index" json:"severity"`
	Details      string            `gorm:"type:text" json:"details"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
}
