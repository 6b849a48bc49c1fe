package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/merit-go-api/internal/dto"
	"github.com/noah-isme/merit-go-api/internal/models"
	"github.com/noah-isme/merit-go-api/internal/observability"
	"github.com/noah-isme/merit-go-api/internal/repository"
)

var (
	// ErrInvalidTransition indicates the state machine forbids the requested move.
	ErrInvalidTransition = errors.New("transition not allowed from current status")
	// ErrStatusConflict indicates another actor transitioned the submission first.
	// The caller must reload and decide; the engine never retries.
	ErrStatusConflict = errors.New("submission was modified concurrently")
	// ErrCreditsRequired indicates an approval without an awarded amount.
	ErrCreditsRequired = errors.New("credits are required when approving")
	// ErrCreditsExceedExpected indicates the award exceeds the claimed amount.
	ErrCreditsExceedExpected = errors.New("awarded credits exceed expected credits")
	// ErrAwardConsistency indicates the ledger already held an award for a
	// submission whose status CAS just succeeded. That should be impossible;
	// it is surfaced loudly instead of being swallowed.
	ErrAwardConsistency = errors.New("ledger award conflicts with fresh approval")
)

// WorkflowService is the transition engine. It owns no state: it orchestrates
// the submission store, credit ledger, authorization guard, audit log and
// notification dispatcher.
type WorkflowService interface {
	Transition(ctx context.Context, actor Actor, submissionID uint, payload dto.TransitionRequest) (dto.SubmissionResponse, error)
}

type workflowService struct {
	submissions repository.SubmissionRepository
	credits     CreditService
	guard       AuthorizationGuard
	audit       AuditRecorder
	notifier    Notifier
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewWorkflowService constructs the workflow engine.
func NewWorkflowService(submissions repository.SubmissionRepository, credits CreditService, guard AuthorizationGuard, audit AuditRecorder, notifier Notifier, validate *validator.Validate, logger zerolog.Logger) WorkflowService {
	return &workflowService{
		submissions: submissions,
		credits:     credits,
		guard:       guard,
		audit:       audit,
		notifier:    notifier,
		validator:   validate,
		logger:      logger.With().Str("component", "workflow_service").Logger(),
		now:         time.Now,
	}
}

func (s *workflowService) Transition(ctx context.Context, actor Actor, submissionID uint, payload dto.TransitionRequest) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/merit-go-api/internal/service/workflow")
	ctx, span := tracer.Start(ctx, "workflow.transition")
	span.SetAttributes(
		attribute.Int64("workflow.submission_id", int64(submissionID)),
		attribute.Int64("workflow.actor_id", int64(actor.ID)),
		attribute.String("workflow.target_status", payload.TargetStatus),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	target := models.SubmissionStatus(payload.TargetStatus)

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			s.countTransition(target, "not_found")
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.SubmissionResponse{}, err
	}

	current := submission.Status

	action := ActionTransition
	severity := models.AuditSeverityInfo
	if payload.Override {
		action = ActionOverride
		severity = models.AuditSeverityWarning
	}

	if decision := s.guard.Check(actor.Role, action, submission.StudentID, actor.ID); !decision.Allowed {
		s.recordRejected(ctx, actor, submission, target, decision.Reason, models.AuditSeverityWarning)
		s.countTransition(target, "denied")
		span.SetStatus(codes.Error, "authorization_denied")
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %s", ErrNotAllowed, decision.Reason)
	}

	// Override skips the legality table but still goes through the CAS below, so
	// even a forced transition cannot clobber a concurrent change unseen.
	if !payload.Override && !current.CanTransitionTo(target) {
		s.recordRejected(ctx, actor, submission, target,
			fmt.Sprintf("illegal transition %s -> %s", current, target), models.AuditSeverityWarning)
		s.countTransition(target, "invalid")
		span.SetStatus(codes.Error, "invalid_transition")
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}

	var awarded *float64
	if target == models.SubmissionStatusApproved {
		if payload.Credits == nil {
			s.recordRejected(ctx, actor, submission, target, "credits missing on approval", models.AuditSeverityInfo)
			s.countTransition(target, "invalid")
			span.SetStatus(codes.Error, "credits_required")
			return dto.SubmissionResponse{}, ErrCreditsRequired
		}
		if *payload.Credits < 0 || *payload.Credits > submission.ExpectedCredits {
			s.recordRejected(ctx, actor, submission, target,
				fmt.Sprintf("credits %.2f outside [0, %.2f]", *payload.Credits, submission.ExpectedCredits),
				models.AuditSeverityInfo)
			s.countTransition(target, "invalid")
			span.SetStatus(codes.Error, "credits_out_of_bounds")
			return dto.SubmissionResponse{}, fmt.Errorf("%w: %.2f > %.2f", ErrCreditsExceedExpected, *payload.Credits, submission.ExpectedCredits)
		}
		credits := *payload.Credits
		awarded = &credits
	}

	fields := repository.DecisionFields{
		ReviewerID:     actor.ID,
		AwardedCredits: awarded,
		Comments:       payload.Comments,
	}
	if target.Terminal() {
		decidedAt := s.now()
		fields.DecidedAt = &decidedAt
	}

	updated, err := s.submissions.UpdateStatus(ctx, submissionID, current, target, fields)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			s.recordRejected(ctx, actor, submission, target, "lost concurrent update race", models.AuditSeverityWarning)
			s.countTransition(target, "conflict")
			span.SetStatus(codes.Error, "status_conflict")
			return dto.SubmissionResponse{}, fmt.Errorf("%w: reload and retry against the new state", ErrStatusConflict)
		case errors.Is(err, gorm.ErrRecordNotFound):
			s.countTransition(target, "not_found")
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "status_update_failed")
			return dto.SubmissionResponse{}, err
		}
	}

	if target == models.SubmissionStatusApproved {
		if _, err := s.credits.Award(ctx, updated.ID, updated.StudentID, *awarded, actor); err != nil {
			if errors.Is(err, ErrDuplicateAward) {
				// The CAS above guarantees exclusivity, so a duplicate here means
				// the ledger and the store disagree. Surface it, never mask it.
				s.recordConsistencyFault(ctx, actor, updated)
				s.countTransition(target, "consistency_error")
				span.SetStatus(codes.Error, "duplicate_award")
				return dto.SubmissionResponse{}, fmt.Errorf("%w: submission %d", ErrAwardConsistency, updated.ID)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "award_failed")
			return dto.SubmissionResponse{}, err
		}
	}

	s.recordApplied(ctx, actor, updated, current, severity, payload.Override)
	s.countTransition(target, "applied")

	if target.Terminal() {
		event := WorkflowEvent{
			SubmissionID: updated.ID,
			StudentID:    updated.StudentID,
			ActorID:      actor.ID,
			FromStatus:   current,
			ToStatus:     target,
			Credits:      awarded,
			OccurredAt:   s.now(),
		}
		// Fire-and-forget: a dead dispatcher never rolls back a committed
		// transition.
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", updated.ID).Msg("workflow notification failed")
		}
	}

	s.logger.Info().
		Uint("submission_id", updated.ID).
		Str("from", string(current)).
		Str("to", string(target)).
		Uint("actor_id", actor.ID).
		Bool("override", payload.Override).
		Msg("transition applied")

	span.SetAttributes(attribute.String("workflow.outcome", "applied"))

	return dto.NewSubmissionResponse(updated), nil
}

func (s *workflowService) countTransition(target models.SubmissionStatus, outcome string) {
	observability.WorkflowTransitions().WithLabelValues(string(target), outcome).Inc()
}

func (s *workflowService) recordApplied(ctx context.Context, actor Actor, submission models.Submission, from models.SubmissionStatus, severity models.AuditSeverity, override bool) {
	metadata := map[string]interface{}{
		"from_status": string(from),
		"to_status":   string(submission.Status),
		"student_id":  submission.StudentID,
	}
	if submission.AwardedCredits != nil {
		metadata["awarded_credits"] = *submission.AwardedCredits
	}
	// An override out of approved leaves the award row in the ledger; flag it so
	// auditors can see the reversal still owed.
	if override && from == models.SubmissionStatusApproved && submission.Status != models.SubmissionStatusApproved {
		metadata["award_pending_reversal"] = true
	}

	if _, err := s.audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Action:       models.AuditActionTransitionApplied,
		ResourceType: ResourceTypeSubmission,
		ResourceID:   &submission.ID,
		Severity:     severity,
		Details:      fmt.Sprintf("transition %s -> %s applied", from, submission.Status),
		Metadata:     metadata,
	}); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to audit applied transition")
	}
}

func (s *workflowService) recordRejected(ctx context.Context, actor Actor, submission models.Submission, target models.SubmissionStatus, reason string, severity models.AuditSeverity) {
	if _, err := s.audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Action:       models.AuditActionTransitionRejected,
		ResourceType: ResourceTypeSubmission,
		ResourceID:   &submission.ID,
		Severity:     severity,
		Details:      reason,
		Metadata: map[string]interface{}{
			"from_status": string(submission.Status),
			"to_status":   string(target),
			"student_id":  submission.StudentID,
		},
	}); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to audit rejected transition")
	}
}

func (s *workflowService) recordConsistencyFault(ctx context.Context, actor Actor, submission models.Submission) {
	s.logger.Error().
		Uint("submission_id", submission.ID).
		Msg("duplicate ledger award after winning status update")

	if _, err := s.audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Action:       models.AuditActionTransitionRejected,
		ResourceType: ResourceTypeSubmission,
		ResourceID:   &submission.ID,
		Severity:     models.AuditSeverityError,
		Details:      "duplicate ledger award after exclusive status update",
		Metadata: map[string]interface{}{
			"student_id": submission.StudentID,
		},
	}); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to audit consistency fault")
	}
}
