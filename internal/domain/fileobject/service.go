package fileobject

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dronewerx/internal/storage"
)

// BlobStore is the part of the blob store the workflow needs.
type BlobStore interface {
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Remove(key string) error
	Open(key string) (*os.File, error)
}

// Service registers uploads: blob first, metadata second, and the blob is
// removed again when the metadata cannot be stored.
type Service struct {
	repo  Repository
	blobs BlobStore
	log   logrus.FieldLogger
	newID func() uuid.UUID
	now   func() time.Time
}

type Option func(*Service)

func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *Service) { s.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

func NewService(repo Repository, blobs BlobStore, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		blobs: blobs,
		log:   log,
		newID: uuid.New,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload stores the blob and records its metadata.
//
// A blob write failure returns before the database is touched. A database
// failure after the blob was written removes the blob before returning; if
// that removal fails too it is logged and the database error is returned.
// in.Body is closed on every path.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*FileObject, error) {
	defer in.Body.Close()

	id := s.newID()
	uploadedAt := s.now().UTC().Truncate(time.Microsecond)
	key := storage.Key(uploadedAt, id.String(), storage.Extension(in.Filename))
	log := s.log.WithFields(logrus.Fields{"file_id": id.String(), "storage_path": key})

	size, err := s.blobs.Save(ctx, key, in.Body)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			log.Warn("upload rejected: size cap exceeded")
			return nil, ErrFileTooLarge
		}
		log.WithError(err).Error("blob write failed")
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	persisted, err := s.repo.Create(ctx, &FileObject{
		ID:           id,
		OriginalName: in.Filename,
		ContentType:  in.ContentType,
		SizeBytes:    size,
		StoragePath:  key,
		UploadedAt:   uploadedAt,
	})
	if err != nil {
		log = log.WithError(err).WithFields(dbErrorFields(err))
		if rmErr := s.blobs.Remove(key); rmErr != nil {
			log.WithField("remove_error", rmErr.Error()).Error("metadata insert failed and blob could not be removed; blob is orphaned")
		} else {
			log.Error("metadata insert failed; blob removed")
		}
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	log.WithFields(logrus.Fields{
		"size_bytes":   persisted.SizeBytes,
		"content_type": persisted.ContentType,
	}).Info("file registered")
	return persisted, nil
}

// List returns every file, most recent first.
func (s *Service) List(ctx context.Context) ([]FileObject, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*FileObject, error) {
	return s.repo.GetByID(ctx, id)
}

// Open returns the metadata and an open handle on the blob. The caller closes the file.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (*FileObject, *os.File, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	blob, err := s.blobs.Open(f.StoragePath)
	if err != nil {
		return f, nil, err
	}
	return f, blob, nil
}
