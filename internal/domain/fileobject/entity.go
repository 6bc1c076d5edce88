package fileobject

import (
	"time"

	"github.com/google/uuid"
)

// FileObject is the metadata row recorded for one uploaded blob.
// Rows are written once by the upload workflow and never updated.
type FileObject struct {
	ID           uuid.UUID  `gorm:"column:id;primaryKey" json:"id"`
	OriginalName string     `gorm:"column:original_name" json:"original_name"`
	ContentType  string     `gorm:"column:content_type" json:"content_type"`
	SizeBytes    int64      `gorm:"column:size_bytes" json:"size_bytes"`
	StoragePath  string     `gorm:"column:storage_path" json:"storage_path"` // key under the blob root
	UploadedAt   time.Time  `gorm:"column:uploaded_at" json:"uploaded_at"`
	UploadedBy   *uuid.UUID `gorm:"column:uploaded_by" json:"uploaded_by"`
}

func (FileObject) TableName() string { return "file_object" }
