package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/merit-go-api/internal/dto"
	"github.com/noah-isme/merit-go-api/internal/service"
	"github.com/noah-isme/merit-go-api/internal/utils"
)

// CreditHandler exposes the credit ledger endpoints.
type CreditHandler struct {
	credits service.CreditService
	logger  zerolog.Logger
}

// NewCreditHandler builds a credit handler instance.
func NewCreditHandler(credits service.CreditService, logger zerolog.Logger) *CreditHandler {
	return &CreditHandler{
		credits: credits,
		logger:  logger.With().Str("component", "credit_handler").Logger(),
	}
}

// RegisterStudentRoutes attaches the per-student credit routes.
func (h *CreditHandler) RegisterStudentRoutes(router fiber.Router) {
	router.Get("/:id/credits", h.summary)
}

// RegisterLedgerRoutes attaches the admin ledger correction routes.
func (h *CreditHandler) RegisterLedgerRoutes(router fiber.Router) {
	router.Post("/:entryID/reversals", h.reverse)
}

func (h *CreditHandler) summary(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.credits.Summary(c.Context(), actorFromContext(c), studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "credits retrieved", summary)
}

func (h *CreditHandler) reverse(c *fiber.Ctx) error {
	entryID, err := parseUintParam(c, "entryID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CreditReversalRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	entry, err := h.credits.Reverse(c.Context(), actorFromContext(c), entryID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "credit entry reversed", entry)
}

func (h *CreditHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrEntryNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "ledger entry not found")
	case errors.Is(err, service.ErrNotAllowed):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrEntryNotReversible),
		errors.Is(err, service.ErrAlreadyReversed):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
