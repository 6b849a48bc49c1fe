package dto

// DocumentUploadResponse returns the opaque reference for an uploaded evidence
// file. The workflow core never interprets the reference.
type DocumentUploadResponse struct {
	Reference string `json:"reference"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}
