package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Lifecycle errors returned by the live session service. Precondition
// failures never mutate persisted state; ErrSpawnFailed is the one error
// that does (the session is durably marked failed before it is returned).
var (
	// ErrSessionNotFound indicates the session id is unknown.
	ErrSessionNotFound = errors.New("live session not found")

	// ErrInvalidState indicates the operation is not valid for the
	// session's current status. A legitimate no-op, not a system fault.
	ErrInvalidState = errors.New("operation not valid for current session status")

	// ErrUserNotApproved indicates the owner has not been approved by an admin.
	ErrUserNotApproved = errors.New("session owner is not approved")

	// ErrMissingStreamKey indicates the session has no active stream key.
	ErrMissingStreamKey = errors.New("stream key missing or inactive")

	// ErrMediaMissing indicates the session's media file does not exist on disk.
	ErrMediaMissing = errors.New("media file not found")

	// ErrSpawnFailed indicates the OS could not start the broadcast process.
	ErrSpawnFailed = errors.New("failed to spawn broadcast process")
)

// Account and credential errors.
var (
	// ErrUserNotFound indicates the user id is unknown.
	ErrUserNotFound = errors.New("user not found")

	// ErrStreamKeyNotFound indicates the stream key id is unknown.
	ErrStreamKeyNotFound = errors.New("stream key not found")

	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email is already registered")

	// ErrPasswordTooShort indicates the password does not meet the minimum length.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
)

// Validation errors for models.
var (
	// ErrTitleRequired indicates a required title field is empty.
	ErrTitleRequired = errors.New("title is required")

	// ErrMediaPathRequired indicates a required media path field is empty.
	ErrMediaPathRequired = errors.New("media_path is required")

	// ErrScheduledAtRequired indicates a scheduled session has no scheduled time.
	ErrScheduledAtRequired = errors.New("scheduled_at is required for scheduled sessions")

	// ErrUsernameRequired indicates a required username field is empty.
	ErrUsernameRequired = errors.New("username is required")

	// ErrEmailRequired indicates a required email field is empty.
	ErrEmailRequired = errors.New("email is required")

	// ErrKeyNameRequired indicates a required stream key name field is empty.
	ErrKeyNameRequired = errors.New("stream key name is required")

	// ErrKeyRequired indicates a required stream key secret is empty.
	ErrKeyRequired = errors.New("stream key is required")

	// ErrInvalidPlatform indicates an unknown streaming platform.
	ErrInvalidPlatform = errors.New("invalid streaming platform")

	// ErrUserIDRequired indicates a required user ID field is zero.
	ErrUserIDRequired = errors.New("user_id is required")
)
