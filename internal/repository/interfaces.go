// Package repository provides data access interfaces and GORM implementations.
package repository

import (
	"context"
	"time"

	"github.com/livemanager/livemanager/internal/models"
)

// UserRepository defines data access for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id models.ULID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetAll(ctx context.Context) ([]*models.User, error)
	GetAdmins(ctx context.Context) ([]*models.User, error)
	Search(ctx context.Context, query string, approved *bool, admin *bool) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id models.ULID) error
	CountByApproval(ctx context.Context) (total, pending, approved, admins int64, err error)
}

// StreamKeyRepository defines data access for stream keys.
type StreamKeyRepository interface {
	Create(ctx context.Context, key *models.StreamKey) error
	GetByID(ctx context.Context, id models.ULID) (*models.StreamKey, error)
	GetByUserID(ctx context.Context, userID models.ULID) ([]*models.StreamKey, error)
	Update(ctx context.Context, key *models.StreamKey) error
	Delete(ctx context.Context, id models.ULID) error
}

// LiveSessionRepository defines data access for live sessions.
//
// TransitionStatus is the single-writer primitive for lifecycle changes:
// a compare-and-set update of status, ffmpeg_pid, and last_error scoped to
// one session id, applied only when the current status matches.
type LiveSessionRepository interface {
	Create(ctx context.Context, session *models.LiveSession) error
	GetByID(ctx context.Context, id models.ULID) (*models.LiveSession, error)
	GetAll(ctx context.Context) ([]*models.LiveSession, error)
	GetByUserID(ctx context.Context, userID models.ULID) ([]*models.LiveSession, error)
	GetByStatus(ctx context.Context, status models.SessionStatus) ([]*models.LiveSession, error)
	GetDueScheduled(ctx context.Context, now time.Time) ([]*models.LiveSession, error)
	Update(ctx context.Context, session *models.LiveSession) error
	Delete(ctx context.Context, id models.ULID) error
	TransitionStatus(ctx context.Context, id models.ULID, from, to models.SessionStatus, pid *int, lastError string) (bool, error)
}
