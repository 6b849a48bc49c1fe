package dto

import (
	"time"

	"github.com/noah-isme/merit-go-api/internal/models"
)

// PaginationMeta describes the paging state of a list response.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// AuditListRequest carries the query filters for the audit trail endpoint.
type AuditListRequest struct {
	Page         int    `query:"page" validate:"omitempty,gte=1"`
	PageSize     int    `query:"page_size" validate:"omitempty,gte=1,lte=200"`
	ActorID      uint   `query:"actor_id"`
	ResourceID   uint   `query:"resource_id"`
	ResourceType string `query:"resource_type" validate:"omitempty,max=64"`
	Action       string `query:"action" validate:"omitempty,max=64"`
	Severity     string `query:"severity" validate:"omitempty,oneof=info warning error"`
	From         string `query:"from" validate:"omitempty"`
	To           string `query:"to" validate:"omitempty"`
}

// AuditEventResponse serializes one audit trail event.
type AuditEventResponse struct {
	ID           uint                   `json:"id"`
	ActorID      uint                   `json:"actor_id"`
	ActorRole    string                 `json:"actor_role"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   *uint                  `json:"resource_id"`
	Severity     string                 `json:"severity"`
	Details      string                 `json:"details"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    time.Time              `json:"created_at"`
}

// AuditListResponse wraps a page of audit events.
type AuditListResponse struct {
	Items      []AuditEventResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewAuditEventResponse converts an AuditEvent model into a DTO.
func NewAuditEventResponse(model models.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		ID:           model.ID,
		ActorID:      model.ActorID,
		ActorRole:    model.ActorRole,
		Action:       string(model.Action),
		ResourceType: model.ResourceType,
		ResourceID:   model.ResourceID,
		Severity:     string(model.Severity),
		Details:      model.Details,
		Metadata:     model.Metadata,
		CreatedAt:    model.CreatedAt,
	}
}
