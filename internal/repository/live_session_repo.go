package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/livemanager/livemanager/internal/models"
)

// liveSessionRepo implements LiveSessionRepository using GORM.
type liveSessionRepo struct {
	db *gorm.DB
}

// NewLiveSessionRepository creates a new LiveSessionRepository.
func NewLiveSessionRepository(db *gorm.DB) LiveSessionRepository {
	return &liveSessionRepo{db: db}
}

// Create creates a new live session.
func (r *liveSessionRepo) Create(ctx context.Context, session *models.LiveSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("creating live session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by ID. Returns nil if not found.
func (r *liveSessionRepo) GetByID(ctx context.Context, id models.ULID) (*models.LiveSession, error) {
	var session models.LiveSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting live session by ID: %w", err)
	}
	return &session, nil
}

// GetAll retrieves all sessions, newest first.
func (r *liveSessionRepo) GetAll(ctx context.Context) ([]*models.LiveSession, error) {
	var sessions []*models.LiveSession
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("getting live sessions: %w", err)
	}
	return sessions, nil
}

// GetByUserID retrieves all sessions owned by a user, newest first.
func (r *liveSessionRepo) GetByUserID(ctx context.Context, userID models.ULID) ([]*models.LiveSession, error) {
	var sessions []*models.LiveSession
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("getting live sessions by user: %w", err)
	}
	return sessions, nil
}

// GetByStatus retrieves all sessions with the given status.
func (r *liveSessionRepo) GetByStatus(ctx context.Context, status models.SessionStatus) ([]*models.LiveSession, error) {
	var sessions []*models.LiveSession
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("getting live sessions by status: %w", err)
	}
	return sessions, nil
}

// GetDueScheduled retrieves pending scheduled sessions whose scheduled time
// has passed.
func (r *liveSessionRepo) GetDueScheduled(ctx context.Context, now time.Time) ([]*models.LiveSession, error) {
	var sessions []*models.LiveSession
	if err := r.db.WithContext(ctx).
		Where("is_scheduled = ? AND status = ? AND scheduled_at <= ?", true, models.SessionStatusPending, now).
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("getting due scheduled sessions: %w", err)
	}
	return sessions, nil
}

// Update updates an existing session.
func (r *liveSessionRepo) Update(ctx context.Context, session *models.LiveSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("updating live session: %w", err)
	}
	return nil
}

// Delete deletes a session by ID.
func (r *liveSessionRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Delete(&models.LiveSession{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting live session: %w", err)
	}
	return nil
}

// TransitionStatus atomically moves a session from one status to another,
// setting or clearing the attached process id in the same write. The update
// applies only when the session is still in the expected `from` status;
// returns false when the compare-and-set lost to a concurrent transition.
func (r *liveSessionRepo) TransitionStatus(ctx context.Context, id models.ULID, from, to models.SessionStatus, pid *int, lastError string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LiveSession{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"ffmpeg_pid": pid,
			"last_error": lastError,
		})
	if res.Error != nil {
		return false, fmt.Errorf("transitioning live session %s from %s to %s: %w", id, from, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}
