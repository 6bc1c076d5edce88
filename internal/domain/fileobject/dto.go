package fileobject

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// UploadInput is one file received from a client. Body is closed by Upload.
type UploadInput struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}

type UploadResponse struct {
	ID           uuid.UUID `json:"id"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	StoragePath  string    `json:"storage_path"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

func toUploadResponse(f *FileObject) UploadResponse {
	return UploadResponse{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		ContentType:  f.ContentType,
		SizeBytes:    f.SizeBytes,
		StoragePath:  f.StoragePath,
		UploadedAt:   f.UploadedAt,
	}
}
