package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/livemanager/livemanager/internal/models"
)

// streamKeyRepo implements StreamKeyRepository using GORM.
type streamKeyRepo struct {
	db *gorm.DB
}

// NewStreamKeyRepository creates a new StreamKeyRepository.
func NewStreamKeyRepository(db *gorm.DB) StreamKeyRepository {
	return &streamKeyRepo{db: db}
}

// Create creates a new stream key.
func (r *streamKeyRepo) Create(ctx context.Context, key *models.StreamKey) error {
	if err := r.db.WithContext(ctx).Create(key).Error; err != nil {
		return fmt.Errorf("creating stream key: %w", err)
	}
	return nil
}

// GetByID retrieves a stream key by ID. Returns nil if not found.
func (r *streamKeyRepo) GetByID(ctx context.Context, id models.ULID) (*models.StreamKey, error) {
	var key models.StreamKey
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting stream key by ID: %w", err)
	}
	return &key, nil
}

// GetByUserID retrieves all stream keys owned by a user, newest first.
func (r *streamKeyRepo) GetByUserID(ctx context.Context, userID models.ULID) ([]*models.StreamKey, error) {
	var keys []*models.StreamKey
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("getting stream keys by user: %w", err)
	}
	return keys, nil
}

// Update updates an existing stream key.
func (r *streamKeyRepo) Update(ctx context.Context, key *models.StreamKey) error {
	if err := r.db.WithContext(ctx).Save(key).Error; err != nil {
		return fmt.Errorf("updating stream key: %w", err)
	}
	return nil
}

// Delete deletes a stream key by ID.
func (r *streamKeyRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Delete(&models.StreamKey{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting stream key: %w", err)
	}
	return nil
}
