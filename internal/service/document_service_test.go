package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	uploads []string
	err     error
}

func (f *fakeStorage) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, name)
	return "https://cdn.example.com/evidence/" + name, nil
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(int64(len(content)) + 1<<20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	return form.File["file"][0]
}

func TestDocumentStorePDF(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewDocumentService(storage, 10, testLogger())

	content := []byte("%PDF-1.4\n%stub evidence document\n")
	result, err := svc.Store(context.Background(), Actor{ID: 7, Role: RoleStudent}, fileHeader(t, "certificate.pdf", content))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/evidence/certificate.pdf", result.Reference)
	require.Equal(t, "application/pdf", result.MimeType)
	require.EqualValues(t, len(content), result.SizeBytes)
	require.Len(t, storage.uploads, 1)
}

func TestDocumentStoreMissingFile(t *testing.T) {
	svc := NewDocumentService(&fakeStorage{}, 10, testLogger())

	_, err := svc.Store(context.Background(), Actor{ID: 7, Role: RoleStudent}, nil)
	require.ErrorIs(t, err, ErrDocumentRequired)
}

func TestDocumentStoreRejectsDisallowedType(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewDocumentService(storage, 10, testLogger())

	// ELF magic bytes: executables are never valid evidence.
	content := []byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := svc.Store(context.Background(), Actor{ID: 7, Role: RoleStudent}, fileHeader(t, "payload.bin", content))
	require.ErrorIs(t, err, ErrDocumentTypeNotAllowed)
	require.Empty(t, storage.uploads)
}

func TestDocumentStoreRejectsOversizedFile(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewDocumentService(storage, 1, testLogger())

	content := bytes.Repeat([]byte("evidence "), 1<<17) // well over 1 MiB
	_, err := svc.Store(context.Background(), Actor{ID: 7, Role: RoleStudent}, fileHeader(t, "huge.txt", content))
	require.ErrorIs(t, err, ErrDocumentTooLarge)
	require.Empty(t, storage.uploads)
}

func TestDocumentStoreUploadFailure(t *testing.T) {
	storage := &fakeStorage{err: errors.New("cloud unavailable")}
	svc := NewDocumentService(storage, 10, testLogger())

	content := []byte("plain text evidence notes")
	_, err := svc.Store(context.Background(), Actor{ID: 7, Role: RoleStudent}, fileHeader(t, "notes.txt", content))
	require.Error(t, err)
}
