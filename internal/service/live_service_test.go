package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livemanager/livemanager/internal/config"
	"github.com/livemanager/livemanager/internal/database"
	"github.com/livemanager/livemanager/internal/ffmpeg"
	"github.com/livemanager/livemanager/internal/models"
	"github.com/livemanager/livemanager/internal/repository"
)

// fakeController is an in-memory stand-in for the OS process controller.
type fakeController struct {
	mu         sync.Mutex
	nextPID    int
	startErr   error
	startCalls int
	alive      map[int]bool
	terminated []int
}

func newFakeController() *fakeController {
	return &fakeController{nextPID: 1000, alive: make(map[int]bool)}
}

func (f *fakeController) Start(_ context.Context, _ string, _ []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.nextPID++
	f.alive[f.nextPID] = true
	return f.nextPID, nil
}

func (f *fakeController) IsAlive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func (f *fakeController) Terminate(pid int, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, pid)
	delete(f.alive, pid)
	return nil
}

func (f *fakeController) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls
}

func (f *fakeController) terminatedPIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.terminated...)
}

// fakeNotifier records notifications; the service fires them from
// goroutines, so access is synchronized.
type fakeNotifier struct {
	mu      sync.Mutex
	started []string
	failed  []string
}

func (f *fakeNotifier) SessionStarted(_ context.Context, session *models.LiveSession, _ *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, session.ID.String())
}

func (f *fakeNotifier) SessionFailed(_ context.Context, session *models.LiveSession, _ *models.User, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, session.ID.String()+": "+reason)
}

func (f *fakeNotifier) startedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

func (f *fakeNotifier) failedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.failed)
}

type testEnv struct {
	svc      *LiveService
	proc     *fakeController
	notes    *fakeNotifier
	sessions repository.LiveSessionRepository
	keys     repository.StreamKeyRepository
	users    repository.UserRepository
	owner    *models.User
	key      *models.StreamKey
	media    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	sessions := repository.NewLiveSessionRepository(db.DB)
	keys := repository.NewStreamKeyRepository(db.DB)
	users := repository.NewUserRepository(db.DB)
	ctx := context.Background()

	owner := &models.User{
		Username:     "broadcaster",
		Email:        "broadcaster@example.com",
		PasswordHash: "hash",
		IsApproved:   true,
	}
	require.NoError(t, users.Create(ctx, owner))

	key := &models.StreamKey{
		UserID:   owner.ID,
		Name:     "main channel",
		Key:      "secret-key",
		Platform: models.PlatformYouTube,
		IsActive: true,
	}
	require.NoError(t, keys.Create(ctx, key))

	media := filepath.Join(t.TempDir(), "show.mp4")
	require.NoError(t, os.WriteFile(media, []byte("video"), 0o644))

	proc := newFakeController()
	notes := &fakeNotifier{}
	svc := NewLiveService(sessions, keys, users, proc).
		WithNotifier(notes).
		WithFFmpeg("/usr/bin/ffmpeg", ffmpeg.DefaultBroadcastProfile())

	return &testEnv{
		svc:      svc,
		proc:     proc,
		notes:    notes,
		sessions: sessions,
		keys:     keys,
		users:    users,
		owner:    owner,
		key:      key,
		media:    media,
	}
}

func (e *testEnv) newSession(t *testing.T, status models.SessionStatus) *models.LiveSession {
	t.Helper()
	session := &models.LiveSession{
		UserID:      e.owner.ID,
		Title:       "show",
		MediaPath:   e.media,
		StreamKeyID: &e.key.ID,
		Status:      status,
	}
	require.NoError(t, e.sessions.Create(context.Background(), session))
	return session
}

func (e *testEnv) reload(t *testing.T, id models.ULID) *models.LiveSession {
	t.Helper()
	session, err := e.sessions.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, session)
	return session
}

// requirePIDInvariant asserts that a process id is attached exactly when
// the session is running.
func requirePIDInvariant(t *testing.T, session *models.LiveSession) {
	t.Helper()
	if session.Status == models.SessionStatusRunning {
		require.NotNil(t, session.FFmpegPID)
	} else {
		require.Nil(t, session.FFmpegPID)
	}
}

func TestStart(t *testing.T) {
	env := newTestEnv(t)
	session := env.newSession(t, models.SessionStatusPending)

	require.NoError(t, env.svc.Start(context.Background(), session.ID))

	got := env.reload(t, session.ID)
	assert.Equal(t, models.SessionStatusRunning, got.Status)
	requirePIDInvariant(t, got)
	assert.Equal(t, 1, env.proc.calls())

	assert.Eventually(t, func() bool {
		return env.notes.startedCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStartNotFound(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.Start(context.Background(), models.NewULID())
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	assert.Zero(t, env.proc.calls())
}

func TestStartInvalidStateDoesNotSpawn(t *testing.T) {
	env := newTestEnv(t)

	for _, status := range []models.SessionStatus{
		models.SessionStatusRunning,
		models.SessionStatusCompleted,
		models.SessionStatusFailed,
	} {
		session := env.newSession(t, status)

		err := env.svc.Start(context.Background(), session.ID)
		assert.ErrorIs(t, err, models.ErrInvalidState, "status %s", status)

		got := env.reload(t, session.ID)
		assert.Equal(t, status, got.Status, "status %s must be untouched", status)
	}
	assert.Zero(t, env.proc.calls())
}

func TestStartUnapprovedOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.owner.IsApproved = false
	require.NoError(t, env.users.Update(ctx, env.owner))
	session := env.newSession(t, models.SessionStatusPending)

	err := env.svc.Start(ctx, session.ID)
	assert.ErrorIs(t, err, models.ErrUserNotApproved)
	assert.Zero(t, env.proc.calls())

	got := env.reload(t, session.ID)
	assert.Equal(t, models.SessionStatusPending, got.Status)
	requirePIDInvariant(t, got)
}

func TestStartWithoutStreamKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := env.newSession(t, models.SessionStatusPending)
	session.StreamKeyID = nil
	require.NoError(t, env.sessions.Update(ctx, session))

	err := env.svc.Start(ctx, session.ID)
	assert.ErrorIs(t, err, models.ErrMissingStreamKey)
	assert.Zero(t, env.proc.calls())
}

func TestStartWithInactiveStreamKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.key.IsActive = false
	require.NoError(t, env.keys.Update(ctx, env.key))
	session := env.newSession(t, models.SessionStatusPending)

	err := env.svc.Start(ctx, session.ID)
	assert.ErrorIs(t, err, models.ErrMissingStreamKey)
	assert.Zero(t, env.proc.calls())
}

func TestStartWithMissingMedia(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := env.newSession(t, models.SessionStatusPending)
	session.MediaPath = filepath.Join(t.TempDir(), "gone.mp4")
	require.NoError(t, env.sessions.Update(ctx, session))

	err := env.svc.Start(ctx, session.ID)
	assert.ErrorIs(t, err, models.ErrMediaMissing)
	assert.Zero(t, env.proc.calls())

	got := env.reload(t, session.ID)
	assert.Equal(t, models.SessionStatusPending, got.Status)
}

func TestStartSpawnFailureMarksFailed(t *testing.T) {
	env := newTestEnv(t)
	env.proc.startErr = errors.New("exec format error")
	session := env.newSession(t, models.SessionStatusPending)

	err := env.svc.Start(context.Background(), session.ID)
	assert.ErrorIs(t, err, models.ErrSpawnFailed)

	got := env.reload(t, session.ID)
	assert.Equal(t, models.SessionStatusFailed, got.Status)
	requirePIDInvariant(t, got)
	assert.Contains(t, got.LastError, "exec format error")

	assert.Eventually(t, func() bool {
		return env.notes.failedCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStartConcurrentSpawnsExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	session := env.newSession(t, models.SessionStatusPending)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- env.svc.Start(context.Background(), session.ID)
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrInvalidState):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, rejected)
	assert.Equal(t, 1, env.proc.calls())

	got := env.reload(t, session.ID)
	assert.Equal(t, models.SessionStatusRunning, got.Status)
	requirePIDInvariant(t, got)
}

func TestStop(t *testing.T) {
	env := newTestEnv(t)
	session := env.newSession(t, models.SessionStatusPending)
	ctx := context.Background()

	require.NoError(t, env.svc.Start(ctx, session.ID))
	running := env.reload(t, session.ID)
	pid := *running.FFmpegPID

	require.NoError(t, env.svc.Stop(ctx, session.ID))

	got := env.reload(t, session.ID)
	assert.Equal(t, models.SessionStatusCompleted, got.Status)
	requirePIDInvariant(t, got)
	assert.Contains(t, env.proc.terminatedPIDs(), pid)
}

func TestStopWhenProcessAlreadyDead(t *testing.T) {
	env := newTestEnv(t)
	session := env.newSession(t, models.SessionStatusPending)
	ctx := context.Background()

	require.NoError(t, env.svc.Start(ctx, session.ID))
	running := env.reload(t, session.ID)

	// Simulate an out-of-band crash before the stop request.
	env.proc.mu.Lock()
	delete(env.proc.alive, *running.FFmpegPID)
	env.proc.mu.Unlock()

	require.NoError(t, env.svc.Stop(ctx, session.ID))

	got := env.reload(t, session.ID)
	assert.Equal(t, models.SessionStatusCompleted, got.Status)
	requirePIDInvariant(t, got)
}

func TestStopInvalidState(t *testing.T) {
	env := newTestEnv(t)

	for _, status := range []models.SessionStatus{
		models.SessionStatusPending,
		models.SessionStatusCompleted,
		models.SessionStatusFailed,
	} {
		session := env.newSession(t, status)
		err := env.svc.Stop(context.Background(), session.ID)
		assert.ErrorIs(t, err, models.ErrInvalidState, "status %s", status)
	}
}

func TestRestartFromTerminalStates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, status := range []models.SessionStatus{
		models.SessionStatusCompleted,
		models.SessionStatusFailed,
	} {
		session := env.newSession(t, status)

		require.NoError(t, env.svc.Restart(ctx, session.ID), "status %s", status)

		got := env.reload(t, session.ID)
		assert.Equal(t, models.SessionStatusRunning, got.Status)
		requirePIDInvariant(t, got)
	}
	assert.Equal(t, 2, env.proc.calls())
}

func TestRestartRejectsNonTerminalStates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, status := range []models.SessionStatus{
		models.SessionStatusPending,
		models.SessionStatusRunning,
	} {
		session := env.newSession(t, status)
		err := env.svc.Restart(ctx, session.ID)
		assert.ErrorIs(t, err, models.ErrInvalidState, "status %s", status)
	}
	assert.Zero(t, env.proc.calls())
}

func TestRestartClearsPreviousFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.proc.startErr = errors.New("no such device")
	session := env.newSession(t, models.SessionStatusPending)
	require.ErrorIs(t, env.svc.Start(ctx, session.ID), models.ErrSpawnFailed)

	env.proc.startErr = nil
	require.NoError(t, env.svc.Restart(ctx, session.ID))

	got := env.reload(t, session.ID)
	assert.Equal(t, models.SessionStatusRunning, got.Status)
	assert.Empty(t, got.LastError)
	requirePIDInvariant(t, got)
}

func TestSweepMarksDeadProcessCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := env.newSession(t, models.SessionStatusPending)
	deadPID := 4242
	ok, err := env.sessions.TransitionStatus(ctx, session.ID, models.SessionStatusPending, models.SessionStatusRunning, &deadPID, "")
	require.NoError(t, err)
	require.True(t, ok)

	reconciled, err := env.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reconciled)

	got := env.reload(t, session.ID)
	assert.Equal(t, models.SessionStatusCompleted, got.Status)
	requirePIDInvariant(t, got)
}

func TestSweepLeavesLiveProcessAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := env.newSession(t, models.SessionStatusPending)
	require.NoError(t, env.svc.Start(ctx, session.ID))
	running := env.reload(t, session.ID)

	reconciled, err := env.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, reconciled)

	got := env.reload(t, session.ID)
	assert.Equal(t, models.SessionStatusRunning, got.Status)
	assert.Equal(t, *running.FFmpegPID, *got.FFmpegPID)
	assert.Empty(t, env.proc.terminatedPIDs())
}

func TestSweepRepairsRunningSessionWithoutPID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := env.newSession(t, models.SessionStatusPending)
	ok, err := env.sessions.TransitionStatus(ctx, session.ID, models.SessionStatusPending, models.SessionStatusRunning, nil, "")
	require.NoError(t, err)
	require.True(t, ok)

	reconciled, err := env.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reconciled)

	got := env.reload(t, session.ID)
	assert.Equal(t, models.SessionStatusCompleted, got.Status)
	requirePIDInvariant(t, got)
}

func TestSweepMixedPopulation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alive := env.newSession(t, models.SessionStatusPending)
	require.NoError(t, env.svc.Start(ctx, alive.ID))

	dead := env.newSession(t, models.SessionStatusPending)
	deadPID := 99999
	ok, err := env.sessions.TransitionStatus(ctx, dead.ID, models.SessionStatusPending, models.SessionStatusRunning, &deadPID, "")
	require.NoError(t, err)
	require.True(t, ok)

	pending := env.newSession(t, models.SessionStatusPending)
	completed := env.newSession(t, models.SessionStatusCompleted)

	reconciled, err := env.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reconciled)

	assert.Equal(t, models.SessionStatusRunning, env.reload(t, alive.ID).Status)
	assert.Equal(t, models.SessionStatusCompleted, env.reload(t, dead.ID).Status)
	assert.Equal(t, models.SessionStatusPending, env.reload(t, pending.ID).Status)
	assert.Equal(t, models.SessionStatusCompleted, env.reload(t, completed.ID).Status)
}

func TestStartDueScheduled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now()

	past := now.Add(-5 * time.Minute)
	future := now.Add(time.Hour)

	due := env.newSession(t, models.SessionStatusPending)
	due.IsScheduled = true
	due.ScheduledAt = &past
	require.NoError(t, env.sessions.Update(ctx, due))

	notYet := env.newSession(t, models.SessionStatusPending)
	notYet.IsScheduled = true
	notYet.ScheduledAt = &future
	require.NoError(t, env.sessions.Update(ctx, notYet))

	onDemand := env.newSession(t, models.SessionStatusPending)

	started, err := env.svc.StartDueScheduled(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, started)

	assert.Equal(t, models.SessionStatusRunning, env.reload(t, due.ID).Status)
	assert.Equal(t, models.SessionStatusPending, env.reload(t, notYet.ID).Status)
	assert.Equal(t, models.SessionStatusPending, env.reload(t, onDemand.ID).Status)
}

func TestStartDueScheduledSkipsFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now()
	past := now.Add(-time.Minute)

	broken := env.newSession(t, models.SessionStatusPending)
	broken.IsScheduled = true
	broken.ScheduledAt = &past
	broken.MediaPath = filepath.Join(t.TempDir(), "missing.mp4")
	require.NoError(t, env.sessions.Update(ctx, broken))

	healthy := env.newSession(t, models.SessionStatusPending)
	healthy.IsScheduled = true
	healthy.ScheduledAt = &past
	require.NoError(t, env.sessions.Update(ctx, healthy))

	started, err := env.svc.StartDueScheduled(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, started)

	assert.Equal(t, models.SessionStatusPending, env.reload(t, broken.ID).Status)
	assert.Equal(t, models.SessionStatusRunning, env.reload(t, healthy.ID).Status)
}

func TestCreateForcesPendingState(t *testing.T) {
	env := newTestEnv(t)
	pid := 123
	session := &models.LiveSession{
		UserID:      env.owner.ID,
		Title:       "show",
		MediaPath:   env.media,
		StreamKeyID: &env.key.ID,
		Status:      models.SessionStatusRunning,
		FFmpegPID:   &pid,
	}

	require.NoError(t, env.svc.Create(context.Background(), session))

	got := env.reload(t, session.ID)
	assert.Equal(t, models.SessionStatusPending, got.Status)
	requirePIDInvariant(t, got)
}

func TestUpdatePreservesLifecycleFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := env.newSession(t, models.SessionStatusPending)
	require.NoError(t, env.svc.Start(ctx, session.ID))
	running := env.reload(t, session.ID)

	edit := *running
	edit.Title = "renamed show"
	edit.Status = models.SessionStatusFailed
	edit.FFmpegPID = nil
	require.NoError(t, env.svc.Update(ctx, &edit))

	got := env.reload(t, session.ID)
	assert.Equal(t, "renamed show", got.Title)
	assert.Equal(t, models.SessionStatusRunning, got.Status)
	assert.Equal(t, *running.FFmpegPID, *got.FFmpegPID)
}

func TestDeleteRejectsRunningSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := env.newSession(t, models.SessionStatusPending)
	require.NoError(t, env.svc.Start(ctx, session.ID))

	err := env.svc.Delete(ctx, session.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	require.NoError(t, env.svc.Stop(ctx, session.ID))
	require.NoError(t, env.svc.Delete(ctx, session.ID))

	_, err = env.svc.GetByID(ctx, session.ID)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}
