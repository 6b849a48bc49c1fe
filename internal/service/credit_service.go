package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/merit-go-api/internal/dto"
	"github.com/noah-isme/merit-go-api/internal/models"
	"github.com/noah-isme/merit-go-api/internal/observability"
	"github.com/noah-isme/merit-go-api/internal/repository"
)

var (
	// ErrDuplicateAward indicates an award entry already exists for a submission.
	// When the workflow engine sees this after winning the status race it is a
	// consistency fault, not a user error.
	ErrDuplicateAward = errors.New("credit already awarded for submission")
	// ErrNegativeCredits indicates an award with a negative amount.
	ErrNegativeCredits = errors.New("awarded credits must not be negative")
	// ErrEntryNotFound indicates the ledger entry does not exist.
	ErrEntryNotFound = errors.New("ledger entry not found")
	// ErrEntryNotReversible indicates a reversal targeted a non-award entry.
	ErrEntryNotReversible = errors.New("only award entries can be reversed")
	// ErrAlreadyReversed indicates the award already has a reversal entry.
	ErrAlreadyReversed = errors.New("award has already been reversed")
)

// CreditService owns the append-only credit ledger: awards issued by the
// workflow engine, admin reversals, and cached per-student totals.
type CreditService interface {
	Award(ctx context.Context, submissionID, studentID uint, credits float64, awardedBy Actor) (models.CreditLedgerEntry, error)
	Reverse(ctx context.Context, actor Actor, entryID uint, payload dto.CreditReversalRequest) (dto.CreditEntryResponse, error)
	Summary(ctx context.Context, actor Actor, studentID uint) (dto.StudentCreditsResponse, error)
}

type creditService struct {
	ledger    repository.CreditLedgerRepository
	guard     AuthorizationGuard
	audit     AuditRecorder
	redis     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCreditService constructs the credit ledger service. The redis client is
// optional; without it totals are computed from the ledger on every call.
func NewCreditService(ledger repository.CreditLedgerRepository, guard AuthorizationGuard, audit AuditRecorder, redisClient *redis.Client, cacheTTL time.Duration, validate *validator.Validate, logger zerolog.Logger) CreditService {
	return &creditService{
		ledger:    ledger,
		guard:     guard,
		audit:     audit,
		redis:     redisClient,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger.With().Str("component", "credit_service").Logger(),
		now:       time.Now,
	}
}

func (s *creditService) Award(ctx context.Context, submissionID, studentID uint, credits float64, awardedBy Actor) (models.CreditLedgerEntry, error) {
	if credits < 0 {
		return models.CreditLedgerEntry{}, ErrNegativeCredits
	}

	entry := models.CreditLedgerEntry{
		SubmissionID: submissionID,
		Kind:         models.CreditEntryKindAward,
		StudentID:    studentID,
		Credits:      credits,
		AwardedBy:    awardedBy.ID,
		AwardedAt:    s.now(),
	}

	if err := s.ledger.Create(ctx, &entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return models.CreditLedgerEntry{}, ErrDuplicateAward
		}
		return models.CreditLedgerEntry{}, err
	}

	s.invalidateTotal(ctx, studentID)
	observability.CreditEntries().WithLabelValues(string(models.CreditEntryKindAward)).Inc()

	if _, err := s.audit.Record(ctx, AuditEntry{
		ActorID:      awardedBy.ID,
		ActorRole:    awardedBy.Role,
		Action:       models.AuditActionCreditAwarded,
		ResourceType: ResourceTypeCreditEntry,
		ResourceID:   &entry.ID,
		Severity:     models.AuditSeverityInfo,
		Details:      "credits awarded",
		Metadata: map[string]interface{}{
			"submission_id": submissionID,
			"student_id":    studentID,
			"credits":       credits,
		},
	}); err != nil {
		s.logger.Error().Err(err).Uint("entry_id", entry.ID).Msg("failed to audit credit award")
	}

	return entry, nil
}

func (s *creditService) Reverse(ctx context.Context, actor Actor, entryID uint, payload dto.CreditReversalRequest) (dto.CreditEntryResponse, error) {
	if decision := s.guard.Check(actor.Role, ActionReverseCredit, 0, actor.ID); !decision.Allowed {
		return dto.CreditEntryResponse{}, fmt.Errorf("%w: %s", ErrNotAllowed, decision.Reason)
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.CreditEntryResponse{}, err
	}

	original, err := s.ledger.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CreditEntryResponse{}, ErrEntryNotFound
		}
		return dto.CreditEntryResponse{}, err
	}

	if original.Kind != models.CreditEntryKindAward {
		return dto.CreditEntryResponse{}, ErrEntryNotReversible
	}

	reversal := models.CreditLedgerEntry{
		SubmissionID:    original.SubmissionID,
		Kind:            models.CreditEntryKindReversal,
		StudentID:       original.StudentID,
		Credits:         -original.Credits,
		AwardedBy:       actor.ID,
		Reason:          payload.Reason,
		ReversesEntryID: &original.ID,
		AwardedAt:       s.now(),
	}

	if err := s.ledger.Create(ctx, &reversal); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return dto.CreditEntryResponse{}, ErrAlreadyReversed
		}
		return dto.CreditEntryResponse{}, err
	}

	s.invalidateTotal(ctx, original.StudentID)
	observability.CreditEntries().WithLabelValues(string(models.CreditEntryKindReversal)).Inc()

	if _, err := s.audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Action:       models.AuditActionCreditReversed,
		ResourceType: ResourceTypeCreditEntry,
		ResourceID:   &reversal.ID,
		Severity:     models.AuditSeverityWarning,
		Details:      payload.Reason,
		Metadata: map[string]interface{}{
			"reverses_entry_id": original.ID,
			"submission_id":     original.SubmissionID,
			"student_id":        original.StudentID,
			"credits":           reversal.Credits,
		},
	}); err != nil {
		s.logger.Error().Err(err).Uint("entry_id", reversal.ID).Msg("failed to audit credit reversal")
	}

	s.logger.Info().Uint("entry_id", reversal.ID).Uint("reverses", original.ID).Msg("credit entry reversed")

	return dto.NewCreditEntryResponse(reversal), nil
}

func (s *creditService) Summary(ctx context.Context, actor Actor, studentID uint) (dto.StudentCreditsResponse, error) {
	action := ActionViewAnyCredits
	if actor.Role == RoleStudent {
		action = ActionViewOwnCredits
	}
	if decision := s.guard.Check(actor.Role, action, studentID, actor.ID); !decision.Allowed {
		return dto.StudentCreditsResponse{}, fmt.Errorf("%w: %s", ErrNotAllowed, decision.Reason)
	}

	total, cacheHit := s.cachedTotal(ctx, studentID)
	if !cacheHit {
		var err error
		total, err = s.ledger.TotalFor(ctx, studentID)
		if err != nil {
			return dto.StudentCreditsResponse{}, err
		}
		s.storeTotal(ctx, studentID, total)
	}

	entries, err := s.ledger.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.StudentCreditsResponse{}, err
	}

	responses := make([]dto.CreditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewCreditEntryResponse(entry))
	}

	return dto.StudentCreditsResponse{
		StudentID:    studentID,
		TotalCredits: total,
		Entries:      responses,
		CacheHit:     cacheHit,
	}, nil
}

func (s *creditService) cacheKey(studentID uint) string {
	return fmt.Sprintf("merit:credits:total:%d", studentID)
}

func (s *creditService) cachedTotal(ctx context.Context, studentID uint) (float64, bool) {
	if s.redis == nil {
		return 0, false
	}

	raw, err := s.redis.Get(ctx, s.cacheKey(studentID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("credit total cache read failed")
		}
		return 0, false
	}

	total, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}

	return total, true
}

func (s *creditService) storeTotal(ctx context.Context, studentID uint, total float64) {
	if s.redis == nil {
		return
	}

	value := strconv.FormatFloat(total, 'f', -1, 64)
	if err := s.redis.Set(ctx, s.cacheKey(studentID), value, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("credit total cache write failed")
	}
}

func (s *creditService) invalidateTotal(ctx context.Context, studentID uint) {
	if s.redis == nil {
		return
	}

	if err := s.redis.Del(ctx, s.cacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("credit total cache invalidation failed")
	}
}
