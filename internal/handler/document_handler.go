package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/merit-go-api/internal/service"
	"github.com/noah-isme/merit-go-api/internal/utils"
)

// DocumentHandler accepts evidence file uploads.
type DocumentHandler struct {
	documents service.DocumentService
	logger    zerolog.Logger
}

// NewDocumentHandler builds a document handler instance.
func NewDocumentHandler(documents service.DocumentService, logger zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		logger:    logger.With().Str("component", "document_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *DocumentHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
}

func (h *DocumentHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	document, err := h.documents.Store(c.Context(), actorFromContext(c), file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentRequired):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrDocumentTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrDocumentTypeNotAllowed):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "document stored", document)
}
