package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/merit-go-api/internal/dto"
)

var (
	// ErrDocumentRequired indicates the upload request carried no file.
	ErrDocumentRequired = errors.New("evidence file is required")
	// ErrDocumentTooLarge indicates the payload exceeded the configured limit.
	ErrDocumentTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrDocumentTypeNotAllowed indicates the MIME type is not permitted.
	ErrDocumentTypeNotAllowed = errors.New("file type not allowed")
)

// FileStorage abstracts the blob store holding evidence documents.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// DocumentService validates and stores evidence files, returning the opaque
// reference that goes into a submission's documents list.
type DocumentService interface {
	Store(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.DocumentUploadResponse, error)
}

type documentService struct {
	storage FileStorage
	maxSize int64
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// Evidence uploads accepted for review: documents, scans, photos, archives.
var allowedDocumentTypes = []string{
	"application/pdf",
	"application/zip",
	"application/x-zip-compressed",
	"image/png",
	"image/jpeg",
	"text/plain",
}

// NewDocumentService constructs the evidence document service.
func NewDocumentService(storage FileStorage, maxSizeMB int, logger zerolog.Logger) DocumentService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &documentService{
		storage: storage,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		logger:  logger.With().Str("component", "document_service").Logger(),
		tracer:  otel.Tracer("github.com/noah-isme/merit-go-api/internal/service/document"),
	}
}

func (s *documentService) Store(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.DocumentUploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "document.store")
	defer span.End()

	span.SetAttributes(attribute.Int64("document.max_bytes", s.maxSize))

	if file == nil {
		span.SetStatus(codes.Error, "file_missing")
		return dto.DocumentUploadResponse{}, ErrDocumentRequired
	}

	span.SetAttributes(
		attribute.String("document.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("document.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		span.SetStatus(codes.Error, "payload_too_large")
		return dto.DocumentUploadResponse{}, ErrDocumentTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open_failed")
		return dto.DocumentUploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read_failed")
		return dto.DocumentUploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		span.SetStatus(codes.Error, "payload_too_large")
		return dto.DocumentUploadResponse{}, ErrDocumentTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	if !documentTypeAllowed(detected) {
		span.SetStatus(codes.Error, "type_not_allowed")
		return dto.DocumentUploadResponse{}, ErrDocumentTypeNotAllowed
	}

	reference, err := s.storage.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload_failed")
		return dto.DocumentUploadResponse{}, err
	}

	s.logger.Info().
		Uint("actor_id", actor.ID).
		Str("mime_type", detected.String()).
		Msg("evidence document stored")

	return dto.DocumentUploadResponse{
		Reference: reference,
		FileName:  file.Filename,
		MimeType:  detected.String(),
		SizeBytes: int64(buf.Len()),
	}, nil
}

func documentTypeAllowed(detected *mimetype.MIME) bool {
	for _, allowed := range allowedDocumentTypes {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}
