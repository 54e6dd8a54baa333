package handlers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livemanager/livemanager/internal/config"
	"github.com/livemanager/livemanager/internal/database"
	"github.com/livemanager/livemanager/internal/models"
	"github.com/livemanager/livemanager/internal/repository"
	"github.com/livemanager/livemanager/internal/service"
)

func newUserHandler(t *testing.T) *UserHandler {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return NewUserHandler(service.NewUserService(repository.NewUserRepository(db.DB)))
}

func registerTestUser(t *testing.T, h *UserHandler, username, email string) UserResponse {
	t.Helper()
	input := &RegisterUserInput{}
	input.Body.Username = username
	input.Body.Email = email
	input.Body.Password = "correct-horse"

	out, err := h.RegisterUser(context.Background(), input)
	require.NoError(t, err)
	return out.Body
}

func TestUserHandlerRegister(t *testing.T) {
	h := newUserHandler(t)

	user := registerTestUser(t, h, "alice", "alice@example.com")
	assert.False(t, user.IsApproved)
	assert.False(t, user.IsAdmin)
	assert.NotEmpty(t, user.ID)
}

func TestUserHandlerRegisterConflict(t *testing.T) {
	h := newUserHandler(t)
	registerTestUser(t, h, "alice", "alice@example.com")

	input := &RegisterUserInput{}
	input.Body.Username = "alice"
	input.Body.Email = "other@example.com"
	input.Body.Password = "correct-horse"

	_, err := h.RegisterUser(context.Background(), input)
	assert.Equal(t, 409, statusOf(t, err))
}

func TestUserHandlerApproveRejectCycle(t *testing.T) {
	h := newUserHandler(t)
	ctx := context.Background()
	user := registerTestUser(t, h, "alice", "alice@example.com")

	approved, err := h.Approve(ctx, &UserIDInput{ID: user.ID})
	require.NoError(t, err)
	assert.True(t, approved.Body.IsApproved)

	rejected, err := h.Reject(ctx, &UserIDInput{ID: user.ID})
	require.NoError(t, err)
	assert.False(t, rejected.Body.IsApproved)
}

func TestUserHandlerApproveUnknownUser(t *testing.T) {
	h := newUserHandler(t)

	_, err := h.Approve(context.Background(), &UserIDInput{ID: models.NewULID().String()})
	assert.Equal(t, 404, statusOf(t, err))
}

func TestUserHandlerSetAdmin(t *testing.T) {
	h := newUserHandler(t)
	user := registerTestUser(t, h, "alice", "alice@example.com")

	input := &SetAdminInput{ID: user.ID}
	input.Body.Admin = true

	out, err := h.SetAdmin(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, out.Body.IsAdmin)
}

func TestUserHandlerListAndStats(t *testing.T) {
	h := newUserHandler(t)
	ctx := context.Background()
	alice := registerTestUser(t, h, "alice", "alice@example.com")
	registerTestUser(t, h, "bob", "bob@example.com")

	_, err := h.Approve(ctx, &UserIDInput{ID: alice.ID})
	require.NoError(t, err)

	all, err := h.List(ctx, &ListUsersInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Body.Total)

	pending, err := h.List(ctx, &ListUsersInput{Approved: "false"})
	require.NoError(t, err)
	require.Equal(t, 1, pending.Body.Total)
	assert.Equal(t, "bob", pending.Body.Items[0].Username)

	search, err := h.List(ctx, &ListUsersInput{Search: "ali"})
	require.NoError(t, err)
	assert.Equal(t, 1, search.Body.Total)

	stats, err := h.GetStats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Body.Total)
	assert.Equal(t, int64(1), stats.Body.Approved)
	assert.Equal(t, int64(1), stats.Body.Pending)
}

func TestUserHandlerDelete(t *testing.T) {
	h := newUserHandler(t)
	ctx := context.Background()
	user := registerTestUser(t, h, "alice", "alice@example.com")

	out, err := h.Delete(ctx, &UserIDInput{ID: user.ID})
	require.NoError(t, err)
	assert.True(t, out.Body.Success)

	_, err = h.Get(ctx, &UserIDInput{ID: user.ID})
	assert.Equal(t, 404, statusOf(t, err))
}
