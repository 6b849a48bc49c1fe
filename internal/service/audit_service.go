package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/merit-go-api/internal/dto"
	"github.com/noah-isme/merit-go-api/internal/models"
	"github.com/noah-isme/merit-go-api/internal/repository"
)

// ErrInvalidTimeFilter indicates a from/to query value that is not an RFC3339
// timestamp. Malformed input, correctable by the caller.
var ErrInvalidTimeFilter = errors.New("time filter must be an RFC3339 timestamp")

// AuditEntry captures the details required to persist one audit event.
type AuditEntry struct {
	ActorID      uint
	ActorRole    Role
	Action       models.AuditAction
	ResourceType string
	ResourceID   *uint
	Severity     models.AuditSeverity
	Details      string
	Metadata     map[string]interface{}
}

// AuditRecorder defines behaviour for appending audit events. Append never fails
// for business reasons; a returned error means broken infrastructure and is
// surfaced, not retried.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) (models.AuditEvent, error)
}

// AuditService exposes methods to append and query the audit trail.
type AuditService interface {
	AuditRecorder
	List(ctx context.Context, req dto.AuditListRequest) (dto.AuditListResponse, error)
}

type auditService struct {
	repo      repository.AuditLogRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuditService constructs the audit trail service.
func NewAuditService(repo repository.AuditLogRepository, validate *validator.Validate, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) (models.AuditEvent, error) {
	if strings.TrimSpace(string(entry.Action)) == "" {
		return models.AuditEvent{}, fmt.Errorf("audit action is required")
	}
	if strings.TrimSpace(entry.ResourceType) == "" {
		return models.AuditEvent{}, fmt.Errorf("audit resource type is required")
	}

	severity := entry.Severity
	if severity == "" {
		severity = models.AuditSeverityInfo
	}

	event := models.AuditEvent{
		ActorID:      entry.ActorID,
		ActorRole:    string(NormalizeRole(string(entry.ActorRole))),
		Action:       entry.Action,
		ResourceType: strings.ToLower(strings.TrimSpace(entry.ResourceType)),
		ResourceID:   entry.ResourceID,
		Severity:     severity,
		Details:      entry.Details,
		Metadata:     sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Append(ctx, &event); err != nil {
		s.logger.Error().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit event")
		return models.AuditEvent{}, err
	}

	return event, nil
}

func (s *auditService) List(ctx context.Context, req dto.AuditListRequest) (dto.AuditListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuditListResponse{}, err
	}

	filter := repository.AuditEventFilter{
		Page:         req.Page,
		PageSize:     req.PageSize,
		ResourceType: strings.ToLower(strings.TrimSpace(req.ResourceType)),
		Action:       models.AuditAction(strings.ToLower(strings.TrimSpace(req.Action))),
		Severity:     models.AuditSeverity(req.Severity),
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}
	if req.ResourceID > 0 {
		filter.ResourceID = &req.ResourceID
	}

	var err error
	if filter.From, err = parseTimeFilter(req.From); err != nil {
		return dto.AuditListResponse{}, fmt.Errorf("from: %w", err)
	}
	if filter.To, err = parseTimeFilter(req.To); err != nil {
		return dto.AuditListResponse{}, fmt.Errorf("to: %w", err)
	}

	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AuditListResponse{}, err
	}

	responses := make([]dto.AuditEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, dto.NewAuditEventResponse(event))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	} else {
		pagination.TotalPages = 1
	}

	return dto.AuditListResponse{Items: responses, Pagination: pagination}, nil
}

func parseTimeFilter(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeFilter, trimmed)
	}
	return &parsed, nil
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
