// Package service implements the business logic for livemanager.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/livemanager/livemanager/internal/ffmpeg"
	"github.com/livemanager/livemanager/internal/models"
	"github.com/livemanager/livemanager/internal/notify"
	"github.com/livemanager/livemanager/internal/repository"
)

// LiveService orchestrates the lifecycle of live sessions. It is the only
// component that mutates a session's status and attached process id, and
// the only caller of the ffmpeg process controller.
//
// All state transitions for one session are serialized through a
// per-session mutex, and every committed transition goes through the
// repository's compare-and-set, so concurrent start/stop/sweep calls can
// never double-spawn or overwrite each other's transitions.
type LiveService struct {
	sessions repository.LiveSessionRepository
	keys     repository.StreamKeyRepository
	users    repository.UserRepository
	proc     ffmpeg.Controller
	notifier notify.Notifier
	logger   *slog.Logger

	ffmpegPath string
	profile    ffmpeg.BroadcastProfile
	mediaDir   string

	mu    sync.Mutex
	locks map[models.ULID]*sync.Mutex
}

// NewLiveService creates a new LiveService.
func NewLiveService(
	sessions repository.LiveSessionRepository,
	keys repository.StreamKeyRepository,
	users repository.UserRepository,
	proc ffmpeg.Controller,
) *LiveService {
	return &LiveService{
		sessions:   sessions,
		keys:       keys,
		users:      users,
		proc:       proc,
		notifier:   notify.NopNotifier{},
		logger:     slog.Default(),
		ffmpegPath: "ffmpeg",
		profile:    ffmpeg.DefaultBroadcastProfile(),
		locks:      make(map[models.ULID]*sync.Mutex),
	}
}

// WithNotifier sets the notifier used for lifecycle notifications.
func (s *LiveService) WithNotifier(n notify.Notifier) *LiveService {
	s.notifier = n
	return s
}

// WithLogger sets a custom logger.
func (s *LiveService) WithLogger(logger *slog.Logger) *LiveService {
	s.logger = logger
	return s
}

// WithFFmpeg sets the ffmpeg binary path and broadcast profile.
func (s *LiveService) WithFFmpeg(path string, profile ffmpeg.BroadcastProfile) *LiveService {
	s.ffmpegPath = path
	s.profile = profile
	return s
}

// WithMediaDir sets the directory relative media paths resolve against.
func (s *LiveService) WithMediaDir(dir string) *LiveService {
	s.mediaDir = dir
	return s
}

// sessionLock returns the mutex serializing transitions for one session.
func (s *LiveService) sessionLock(id models.ULID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// Create validates and persists a new session in the pending state.
func (s *LiveService) Create(ctx context.Context, session *models.LiveSession) error {
	if err := session.Validate(); err != nil {
		return err
	}
	session.Status = models.SessionStatusPending
	session.FFmpegPID = nil
	return s.sessions.Create(ctx, session)
}

// GetByID retrieves a session, or ErrSessionNotFound.
func (s *LiveService) GetByID(ctx context.Context, id models.ULID) (*models.LiveSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}
	return session, nil
}

// GetAll retrieves all sessions.
func (s *LiveService) GetAll(ctx context.Context) ([]*models.LiveSession, error) {
	return s.sessions.GetAll(ctx)
}

// GetByUserID retrieves the sessions owned by a user.
func (s *LiveService) GetByUserID(ctx context.Context, userID models.ULID) ([]*models.LiveSession, error) {
	return s.sessions.GetByUserID(ctx, userID)
}

// Update validates and persists edits to a session. Status and process id
// are lifecycle fields and are not editable here.
func (s *LiveService) Update(ctx context.Context, session *models.LiveSession) error {
	if err := session.Validate(); err != nil {
		return err
	}

	lock := s.sessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.sessions.GetByID(ctx, session.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return models.ErrSessionNotFound
	}
	session.Status = current.Status
	session.FFmpegPID = current.FFmpegPID
	session.LastError = current.LastError
	return s.sessions.Update(ctx, session)
}

// Delete removes a session. Running sessions cannot be deleted.
func (s *LiveService) Delete(ctx context.Context, id models.ULID) error {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if session == nil {
		return models.ErrSessionNotFound
	}
	if session.IsRunning() {
		return models.ErrInvalidState
	}
	return s.sessions.Delete(ctx, id)
}

// Start launches the broadcast process for a pending session.
//
// Preconditions are checked in order; the first failure wins and leaves
// persisted state untouched. A spawn failure is the one path that still
// writes state: the session is durably marked failed before the error is
// returned.
func (s *LiveService) Start(ctx context.Context, id models.ULID) error {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if session == nil {
		return models.ErrSessionNotFound
	}
	if !session.CanStart() {
		return models.ErrInvalidState
	}

	return s.launch(ctx, session)
}

// Restart re-launches a session that previously completed or failed,
// reusing the persisted record. The media and credential are re-validated
// with the same error taxonomy as Start.
func (s *LiveService) Restart(ctx context.Context, id models.ULID) error {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if session == nil {
		return models.ErrSessionNotFound
	}
	if !session.CanRestart() {
		return models.ErrInvalidState
	}

	return s.launch(ctx, session)
}

// launch runs the validate-build-spawn-commit sequence from the session's
// current status. Caller must hold the session lock.
func (s *LiveService) launch(ctx context.Context, session *models.LiveSession) error {
	owner, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return err
	}
	if owner == nil || !owner.IsApproved {
		return models.ErrUserNotApproved
	}

	if session.StreamKeyID == nil {
		return models.ErrMissingStreamKey
	}
	key, err := s.keys.GetByID(ctx, *session.StreamKeyID)
	if err != nil {
		return err
	}
	if key == nil || !key.IsActive {
		return models.ErrMissingStreamKey
	}

	mediaPath := s.resolveMediaPath(session.MediaPath)
	if _, err := os.Stat(mediaPath); err != nil {
		return models.ErrMediaMissing
	}

	from := session.Status
	binary, args := ffmpeg.BroadcastCommand(s.ffmpegPath, mediaPath, key.RTMPURL(), s.profile)

	pid, err := s.proc.Start(ctx, binary, args)
	if err != nil {
		s.logger.Error("broadcast spawn failed",
			slog.String("session_id", session.ID.String()),
			slog.Any("error", err),
		)
		reason := fmt.Sprintf("spawn failed: %v", err)
		if _, casErr := s.sessions.TransitionStatus(ctx, session.ID, from, models.SessionStatusFailed, nil, reason); casErr != nil {
			s.logger.Error("failed to record spawn failure",
				slog.String("session_id", session.ID.String()),
				slog.Any("error", casErr),
			)
		}
		go s.notifier.SessionFailed(context.WithoutCancel(ctx), session, owner, reason)
		return models.ErrSpawnFailed
	}

	ok, err := s.sessions.TransitionStatus(ctx, session.ID, from, models.SessionStatusRunning, &pid, "")
	if err != nil || !ok {
		// The commit lost; a process without a session record must not be
		// left behind.
		if termErr := s.proc.Terminate(pid, false); termErr != nil {
			s.logger.Error("failed to terminate uncommitted broadcast process",
				slog.Int("pid", pid),
				slog.Any("error", termErr),
			)
		}
		if err != nil {
			return err
		}
		return models.ErrInvalidState
	}

	s.logger.Info("live session started",
		slog.String("session_id", session.ID.String()),
		slog.Int("pid", pid),
		slog.String("title", session.Title),
	)
	go s.notifier.SessionStarted(context.WithoutCancel(ctx), session, owner)
	return nil
}

// Stop terminates the broadcast process and marks the session completed.
// Termination errors are logged, not surfaced: stopping a session whose
// process already died is a success.
func (s *LiveService) Stop(ctx context.Context, id models.ULID) error {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if session == nil {
		return models.ErrSessionNotFound
	}
	if !session.IsRunning() {
		return models.ErrInvalidState
	}

	if session.FFmpegPID != nil {
		if err := s.proc.Terminate(*session.FFmpegPID, true); err != nil {
			s.logger.Warn("broadcast terminate reported an error",
				slog.String("session_id", session.ID.String()),
				slog.Int("pid", *session.FFmpegPID),
				slog.Any("error", err),
			)
		}
	}

	if _, err := s.sessions.TransitionStatus(ctx, id, models.SessionStatusRunning, models.SessionStatusCompleted, nil, ""); err != nil {
		return err
	}

	s.logger.Info("live session stopped",
		slog.String("session_id", session.ID.String()),
	)
	return nil
}

// Sweep reconciles every running session against the OS process table.
// Sessions whose process exited out-of-band (crash, manual kill, host
// restart) are marked completed and their pid cleared. A running session
// with no pid is a data-integrity violation repaired the same way. Live
// processes are never touched.
func (s *LiveService) Sweep(ctx context.Context) (reconciled int, err error) {
	running, err := s.sessions.GetByStatus(ctx, models.SessionStatusRunning)
	if err != nil {
		return 0, err
	}

	for _, session := range running {
		if s.sweepOne(ctx, session.ID) {
			reconciled++
		}
	}
	return reconciled, nil
}

// sweepOne reconciles a single session under its lock. Returns true when a
// correction was committed.
func (s *LiveService) sweepOne(ctx context.Context, id models.ULID) bool {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; the session may have been stopped since the
	// listing.
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("sweep failed to load session",
			slog.String("session_id", id.String()),
			slog.Any("error", err),
		)
		return false
	}
	if session == nil || !session.IsRunning() {
		return false
	}

	if session.FFmpegPID == nil {
		s.logger.Warn("running session has no process id, repairing",
			slog.String("session_id", id.String()),
		)
	} else if s.proc.IsAlive(*session.FFmpegPID) {
		return false
	} else {
		s.logger.Info("broadcast process gone, marking session completed",
			slog.String("session_id", id.String()),
			slog.Int("pid", *session.FFmpegPID),
		)
	}

	ok, err := s.sessions.TransitionStatus(ctx, id, models.SessionStatusRunning, models.SessionStatusCompleted, nil, "")
	if err != nil {
		s.logger.Error("sweep failed to reconcile session",
			slog.String("session_id", id.String()),
			slog.Any("error", err),
		)
		return false
	}
	return ok
}

// StartDueScheduled starts every pending scheduled session whose
// scheduled time has passed. Individual failures are logged and do not
// stop the batch.
func (s *LiveService) StartDueScheduled(ctx context.Context, now time.Time) (started int, err error) {
	due, err := s.sessions.GetDueScheduled(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, session := range due {
		if startErr := s.Start(ctx, session.ID); startErr != nil {
			// Another worker may have started it between the query and the
			// lock; that is not a fault.
			if errors.Is(startErr, models.ErrInvalidState) {
				continue
			}
			s.logger.Warn("scheduled session failed to start",
				slog.String("session_id", session.ID.String()),
				slog.Any("error", startErr),
			)
			continue
		}
		started++
	}
	return started, nil
}

// resolveMediaPath resolves a session media path against the media
// directory when it is relative.
func (s *LiveService) resolveMediaPath(path string) string {
	if s.mediaDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.mediaDir, path)
}
