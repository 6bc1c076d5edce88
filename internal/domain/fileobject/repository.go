package fileobject

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, f *FileObject) (*FileObject, error)
	List(ctx context.Context) ([]FileObject, error)
	GetByID(ctx context.Context, id uuid.UUID) (*FileObject, error)
	ExistsByStoragePath(ctx context.Context, storagePath string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create inserts f and reads the row back inside one transaction, so the
// caller gets what was actually stored. Nothing is committed on error.
func (r *repository) Create(ctx context.Context, f *FileObject) (*FileObject, error) {
	var persisted FileObject
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(f).Error; err != nil {
			return fmt.Errorf("insert file_object: %w", err)
		}
		if err := tx.Where("id = ?", f.ID).Take(&persisted).Error; err != nil {
			return fmt.Errorf("read back file_object: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &persisted, nil
}

func (r *repository) List(ctx context.Context) ([]FileObject, error) {
	files := make([]FileObject, 0)
	err := r.db.WithContext(ctx).Order("uploaded_at DESC").Find(&files).Error
	return files, err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*FileObject, error) {
	var f FileObject
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repository) ExistsByStoragePath(ctx context.Context, storagePath string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&FileObject{}).Where("storage_path = ?", storagePath).Count(&n).Error
	return n > 0, err
}

// dbErrorFields extracts the PostgreSQL error details worth logging.
func dbErrorFields(err error) logrus.Fields {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return logrus.Fields{}
	}
	return logrus.Fields{
		"sqlstate":   pgErr.Code,
		"constraint": pgErr.ConstraintName,
		"table":      pgErr.TableName,
	}
}
