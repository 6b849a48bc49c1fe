package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/merit-go-api/internal/models"
)

// AuditEventFilter narrows audit trail queries.
type AuditEventFilter struct {
	Page         int
	PageSize     int
	ActorID      *uint
	ResourceID   *uint
	ResourceType string
	Action       models.AuditAction
	Severity     models.AuditSeverity
	From         *time.Time
	To           *time.Time
}

// AuditLogRepository persists the immutable audit trail. Append and read only.
type AuditLogRepository interface {
	Append(ctx context.Context, event *models.AuditEvent) error
	List(ctx context.Context, filter AuditEventFilter) ([]models.AuditEvent, int64, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository constructs the audit log repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *auditLogRepository) List(ctx context.Context, filter AuditEventFilter) ([]models.AuditEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditEvent{})

	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}

	if filter.ResourceID != nil {
		query = query.Where("resource_id = ?", *filter.ResourceID)
	}

	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}

	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}

	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
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

	var events []models.AuditEvent
	if err := query.Order("created_at ASC").Order("id ASC").Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}
