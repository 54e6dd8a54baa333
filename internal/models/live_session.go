package models

import "time"

// SessionStatus represents the lifecycle state of a live session.
type SessionStatus string

// Session lifecycle states.
//
//	pending --start(ok)--> running
//	pending --start(spawn failed)--> failed
//	running --stop--> completed
//	running --(sweep detects dead process)--> completed
//	completed --restart(ok)--> running
//	failed --restart(ok)--> running
const (
	// SessionStatusPending indicates the session has not been started yet.
	SessionStatusPending SessionStatus = "pending"
	// SessionStatusRunning indicates a broadcast process is attached.
	SessionStatusRunning SessionStatus = "running"
	// SessionStatusCompleted indicates the broadcast finished or was stopped.
	SessionStatusCompleted SessionStatus = "completed"
	// SessionStatusFailed indicates the broadcast process could not be started.
	SessionStatusFailed SessionStatus = "failed"
)

// LiveSession represents one scheduled or on-demand broadcast attempt.
//
// FFmpegPID is non-nil exactly when Status is running; any other
// combination is a data-integrity violation that the reconciliation sweep
// repairs. Status and FFmpegPID are mutated only by the live session
// service.
type LiveSession struct {
	BaseModel

	// UserID is the owning account.
	UserID ULID `gorm:"not null;index;type:varchar(26)" json:"user_id"`

	// Title is the broadcast title.
	Title string `gorm:"not null;size:200" json:"title"`

	// MediaPath is the local input video file. It must exist and be
	// readable at start time.
	MediaPath string `gorm:"not null;size:512" json:"media_path"`

	// StreamKeyID is the destination credential. A session without one
	// can never start.
	StreamKeyID *ULID `gorm:"type:varchar(26);index" json:"stream_key_id,omitempty"`

	// IsScheduled marks the session for automatic start at ScheduledAt.
	IsScheduled bool `gorm:"default:false" json:"is_scheduled"`

	// ScheduledAt is when a scheduled session should start. Required when
	// IsScheduled is true; enforced at creation/edit time.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`

	// Status is the lifecycle state.
	Status SessionStatus `gorm:"not null;default:'pending';size:20;index" json:"status"`

	// FFmpegPID is the OS process id of the attached broadcast process.
	FFmpegPID *int `gorm:"column:ffmpeg_pid" json:"ffmpeg_pid,omitempty"`

	// LastError holds the failure reason from the last failed start.
	LastError string `gorm:"size:4096" json:"last_error,omitempty"`
}

// TableName overrides the table name.
func (LiveSession) TableName() string {
	return "live_sessions"
}

// Validate checks the session for required fields and scheduling consistency.
func (s *LiveSession) Validate() error {
	if s.UserID.IsZero() {
		return ErrUserIDRequired
	}
	if s.Title == "" {
		return ErrTitleRequired
	}
	if s.MediaPath == "" {
		return ErrMediaPathRequired
	}
	if s.IsScheduled && s.ScheduledAt == nil {
		return ErrScheduledAtRequired
	}
	return nil
}

// IsRunning reports whether a broadcast process is attached.
func (s *LiveSession) IsRunning() bool {
	return s.Status == SessionStatusRunning
}

// CanStart reports whether the session is in the startable rest state.
// Owner approval, credential, and media checks happen at start time.
func (s *LiveSession) CanStart() bool {
	return s.Status == SessionStatusPending
}

// CanRestart reports whether the session is in a terminal, restartable state.
func (s *LiveSession) CanRestart() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusFailed
}
