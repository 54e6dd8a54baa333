package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/livemanager/livemanager/internal/models"
)

// SessionController is the live session service surface the handler needs.
type SessionController interface {
	Create(ctx context.Context, session *models.LiveSession) error
	GetByID(ctx context.Context, id models.ULID) (*models.LiveSession, error)
	GetAll(ctx context.Context) ([]*models.LiveSession, error)
	GetByUserID(ctx context.Context, userID models.ULID) ([]*models.LiveSession, error)
	Update(ctx context.Context, session *models.LiveSession) error
	Delete(ctx context.Context, id models.ULID) error
	Start(ctx context.Context, id models.ULID) error
	Stop(ctx context.Context, id models.ULID) error
	Restart(ctx context.Context, id models.ULID) error
}

// SessionHandler handles live session API endpoints.
type SessionHandler struct {
	live   SessionController
	logger *slog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(live SessionController) *SessionHandler {
	return &SessionHandler{
		live:   live,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *SessionHandler) WithLogger(logger *slog.Logger) *SessionHandler {
	h.logger = logger
	return h
}

// Register registers the session routes with the API.
func (h *SessionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listSessions",
		Method:      "GET",
		Path:        "/api/v1/sessions",
		Summary:     "List live sessions",
		Tags:        []string{"Sessions"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "createSession",
		Method:      "POST",
		Path:        "/api/v1/sessions",
		Summary:     "Create a live session",
		Description: "Creates a session in the pending state. It does not start broadcasting until started explicitly or by its schedule.",
		Tags:        []string{"Sessions"},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "getSession",
		Method:      "GET",
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get a live session",
		Tags:        []string{"Sessions"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "updateSession",
		Method:      "PUT",
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Update a live session",
		Description: "Edits session metadata. Lifecycle fields (status, process id) are managed by the server and cannot be set here.",
		Tags:        []string{"Sessions"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID: "deleteSession",
		Method:      "DELETE",
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Delete a live session",
		Tags:        []string{"Sessions"},
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "startSession",
		Method:      "POST",
		Path:        "/api/v1/sessions/{id}/start",
		Summary:     "Start broadcasting",
		Description: "Spawns the broadcast process for a pending session.",
		Tags:        []string{"Sessions"},
	}, h.Start)

	huma.Register(api, huma.Operation{
		OperationID: "stopSession",
		Method:      "POST",
		Path:        "/api/v1/sessions/{id}/stop",
		Summary:     "Stop broadcasting",
		Description: "Terminates the broadcast process and marks the session completed. Succeeds even when the process already exited.",
		Tags:        []string{"Sessions"},
	}, h.Stop)

	huma.Register(api, huma.Operation{
		OperationID: "restartSession",
		Method:      "POST",
		Path:        "/api/v1/sessions/{id}/restart",
		Summary:     "Restart broadcasting",
		Description: "Re-launches a completed or failed session.",
		Tags:        []string{"Sessions"},
	}, h.Restart)
}

// ListSessionsInput is the input for listing sessions.
type ListSessionsInput struct {
	UserID string `query:"user_id" doc:"Filter by owning user"`
}

// ListSessionsOutput is the output for listing sessions.
type ListSessionsOutput struct {
	Body struct {
		Items []SessionResponse `json:"items"`
		Total int               `json:"total"`
	}
}

// List returns all sessions, optionally filtered by owner.
func (h *SessionHandler) List(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
	var sessions []*models.LiveSession
	var err error

	if input.UserID != "" {
		userID, parseErr := parseID(input.UserID)
		if parseErr != nil {
			return nil, parseErr
		}
		sessions, err = h.live.GetByUserID(ctx, userID)
	} else {
		sessions, err = h.live.GetAll(ctx)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list sessions", err)
	}

	out := &ListSessionsOutput{}
	out.Body.Items = make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out.Body.Items = append(out.Body.Items, toSessionResponse(s))
	}
	out.Body.Total = len(out.Body.Items)
	return out, nil
}

// CreateSessionInput is the input for creating a session.
type CreateSessionInput struct {
	Body struct {
		UserID      string     `json:"user_id" required:"true"`
		Title       string     `json:"title" required:"true" maxLength:"200"`
		MediaPath   string     `json:"media_path" required:"true" maxLength:"512"`
		StreamKeyID string     `json:"stream_key_id,omitempty"`
		IsScheduled bool       `json:"is_scheduled,omitempty"`
		ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	}
}

// SessionOutput wraps a single session response.
type SessionOutput struct {
	Body SessionResponse
}

// Create creates a new pending session.
func (h *SessionHandler) Create(ctx context.Context, input *CreateSessionInput) (*SessionOutput, error) {
	userID, err := parseID(input.Body.UserID)
	if err != nil {
		return nil, err
	}

	session := &models.LiveSession{
		UserID:      userID,
		Title:       input.Body.Title,
		MediaPath:   input.Body.MediaPath,
		IsScheduled: input.Body.IsScheduled,
		ScheduledAt: input.Body.ScheduledAt,
	}
	if input.Body.StreamKeyID != "" {
		keyID, err := parseID(input.Body.StreamKeyID)
		if err != nil {
			return nil, err
		}
		session.StreamKeyID = &keyID
	}

	if err := h.live.Create(ctx, session); err != nil {
		return nil, mapLifecycleError(err)
	}
	return &SessionOutput{Body: toSessionResponse(session)}, nil
}

// SessionIDInput carries a session id path parameter.
type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// Get returns one session.
func (h *SessionHandler) Get(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	id, err := parseID(input.ID)
	if err != nil {
		return nil, err
	}

	session, err := h.live.GetByID(ctx, id)
	if err != nil {
		return nil, mapLifecycleError(err)
	}
	return &SessionOutput{Body: toSessionResponse(session)}, nil
}

// UpdateSessionInput is the input for updating a session.
type UpdateSessionInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Title       string     `json:"title" required:"true" maxLength:"200"`
		MediaPath   string     `json:"media_path" required:"true" maxLength:"512"`
		StreamKeyID string     `json:"stream_key_id,omitempty"`
		IsScheduled bool       `json:"is_scheduled,omitempty"`
		ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	}
}

// Update edits session metadata.
func (h *SessionHandler) Update(ctx context.Context, input *UpdateSessionInput) (*SessionOutput, error) {
	id, err := parseID(input.ID)
	if err != nil {
		return nil, err
	}

	session, err := h.live.GetByID(ctx, id)
	if err != nil {
		return nil, mapLifecycleError(err)
	}

	session.Title = input.Body.Title
	session.MediaPath = input.Body.MediaPath
	session.IsScheduled = input.Body.IsScheduled
	session.ScheduledAt = input.Body.ScheduledAt
	session.StreamKeyID = nil
	if input.Body.StreamKeyID != "" {
		keyID, err := parseID(input.Body.StreamKeyID)
		if err != nil {
			return nil, err
		}
		session.StreamKeyID = &keyID
	}

	if err := h.live.Update(ctx, session); err != nil {
		return nil, mapLifecycleError(err)
	}

	updated, err := h.live.GetByID(ctx, id)
	if err != nil {
		return nil, mapLifecycleError(err)
	}
	return &SessionOutput{Body: toSessionResponse(updated)}, nil
}

// DeleteSessionOutput is the output for deleting a session.
type DeleteSessionOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// Delete removes a session.
func (h *SessionHandler) Delete(ctx context.Context, input *SessionIDInput) (*DeleteSessionOutput, error) {
	id, err := parseID(input.ID)
	if err != nil {
		return nil, err
	}

	if err := h.live.Delete(ctx, id); err != nil {
		return nil, mapLifecycleError(err)
	}

	out := &DeleteSessionOutput{}
	out.Body.Success = true
	return out, nil
}

// lifecycle runs one lifecycle operation and returns the refreshed session.
func (h *SessionHandler) lifecycle(ctx context.Context, rawID string, op func(context.Context, models.ULID) error) (*SessionOutput, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	if err := op(ctx, id); err != nil {
		return nil, mapLifecycleError(err)
	}

	session, err := h.live.GetByID(ctx, id)
	if err != nil {
		return nil, mapLifecycleError(err)
	}
	return &SessionOutput{Body: toSessionResponse(session)}, nil
}

// Start spawns the broadcast process.
func (h *SessionHandler) Start(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	return h.lifecycle(ctx, input.ID, h.live.Start)
}

// Stop terminates the broadcast process.
func (h *SessionHandler) Stop(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	return h.lifecycle(ctx, input.ID, h.live.Stop)
}

// Restart re-launches a terminal session.
func (h *SessionHandler) Restart(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	return h.lifecycle(ctx, input.ID, h.live.Restart)
}
