package profile

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	List(ctx context.Context) ([]UserProfile, error)
	Create(ctx context.Context, p *UserProfile) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// List returns every profile in whatever order the database yields them.
func (r *repository) List(ctx context.Context) ([]UserProfile, error) {
	profiles := make([]UserProfile, 0)
	err := r.db.WithContext(ctx).Find(&profiles).Error
	return profiles, err
}

func (r *repository) Create(ctx context.Context, p *UserProfile) error {
	return r.db.WithContext(ctx).Create(p).Error
}
