// Package handlers implements the API operations.
package handlers

import (
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/livemanager/livemanager/internal/models"
)

// SessionResponse is the API representation of a live session.
type SessionResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	MediaPath   string     `json:"media_path"`
	StreamKeyID string     `json:"stream_key_id,omitempty"`
	IsScheduled bool       `json:"is_scheduled"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Status      string     `json:"status"`
	FFmpegPID   *int       `json:"ffmpeg_pid,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toSessionResponse(s *models.LiveSession) SessionResponse {
	resp := SessionResponse{
		ID:          s.ID.String(),
		UserID:      s.UserID.String(),
		Title:       s.Title,
		MediaPath:   s.MediaPath,
		IsScheduled: s.IsScheduled,
		ScheduledAt: s.ScheduledAt,
		Status:      string(s.Status),
		FFmpegPID:   s.FFmpegPID,
		LastError:   s.LastError,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.StreamKeyID != nil {
		resp.StreamKeyID = s.StreamKeyID.String()
	}
	return resp
}

// StreamKeyResponse is the API representation of a stream key. The secret
// is redacted unless the single-key endpoint is used.
type StreamKeyResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	Platform  string    `json:"platform"`
	IngestURL string    `json:"ingest_url,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toStreamKeyResponse(k *models.StreamKey, redactSecret bool) StreamKeyResponse {
	resp := StreamKeyResponse{
		ID:        k.ID.String(),
		UserID:    k.UserID.String(),
		Name:      k.Name,
		Key:       k.Key,
		Platform:  string(k.Platform),
		IngestURL: k.IngestURL,
		IsActive:  k.IsActive,
		CreatedAt: k.CreatedAt,
		UpdatedAt: k.UpdatedAt,
	}
	if redactSecret {
		resp.Key = redactKey(k.Key)
	}
	return resp
}

// redactKey keeps the last four characters of a secret.
func redactKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// UserResponse is the API representation of a user account.
type UserResponse struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	IsAdmin    bool      `json:"is_admin"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ID.String(),
		Username:   u.Username,
		Email:      u.Email,
		IsAdmin:    u.IsAdmin,
		IsApproved: u.IsApproved,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// parseID converts a path parameter to a ULID or a 400 error.
func parseID(raw string) (models.ULID, error) {
	id, err := models.ParseULID(raw)
	if err != nil {
		return models.ULID{}, huma.Error400BadRequest("invalid id", err)
	}
	return id, nil
}

var validationErrors = []error{
	models.ErrTitleRequired,
	models.ErrMediaPathRequired,
	models.ErrScheduledAtRequired,
	models.ErrUsernameRequired,
	models.ErrEmailRequired,
	models.ErrKeyNameRequired,
	models.ErrKeyRequired,
	models.ErrInvalidPlatform,
	models.ErrUserIDRequired,
	models.ErrPasswordTooShort,
}

func isValidationError(err error) bool {
	var v models.ErrValidation
	if errors.As(err, &v) {
		return true
	}
	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// mapLifecycleError translates service errors into API status codes.
func mapLifecycleError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrSessionNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, models.ErrInvalidState):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, models.ErrUserNotApproved):
		return huma.Error403Forbidden(err.Error())
	case errors.Is(err, models.ErrMissingStreamKey),
		errors.Is(err, models.ErrMediaMissing):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, models.ErrSpawnFailed):
		return huma.Error502BadGateway(err.Error())
	case isValidationError(err):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}

// mapAccountError translates account and credential errors.
func mapAccountError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrStreamKeyNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, models.ErrUsernameTaken),
		errors.Is(err, models.ErrEmailTaken):
		return huma.Error409Conflict(err.Error())
	case isValidationError(err):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}
