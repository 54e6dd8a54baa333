package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/livemanager/livemanager/internal/models"
	"github.com/livemanager/livemanager/internal/service"
)

// StreamKeyHandler handles stream key API endpoints.
type StreamKeyHandler struct {
	keys   *service.StreamKeyService
	logger *slog.Logger
}

// NewStreamKeyHandler creates a new stream key handler.
func NewStreamKeyHandler(keys *service.StreamKeyService) *StreamKeyHandler {
	return &StreamKeyHandler{
		keys:   keys,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *StreamKeyHandler) WithLogger(logger *slog.Logger) *StreamKeyHandler {
	h.logger = logger
	return h
}

// Register registers the stream key routes with the API.
func (h *StreamKeyHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listStreamKeys",
		Method:      "GET",
		Path:        "/api/v1/stream-keys",
		Summary:     "List stream keys for a user",
		Description: "Secrets are redacted in listings; fetch a single key to reveal it.",
		Tags:        []string{"StreamKeys"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "createStreamKey",
		Method:      "POST",
		Path:        "/api/v1/stream-keys",
		Summary:     "Create a stream key",
		Tags:        []string{"StreamKeys"},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "getStreamKey",
		Method:      "GET",
		Path:        "/api/v1/stream-keys/{id}",
		Summary:     "Get a stream key",
		Tags:        []string{"StreamKeys"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "updateStreamKey",
		Method:      "PUT",
		Path:        "/api/v1/stream-keys/{id}",
		Summary:     "Update a stream key",
		Tags:        []string{"StreamKeys"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID: "deleteStreamKey",
		Method:      "DELETE",
		Path:        "/api/v1/stream-keys/{id}",
		Summary:     "Delete a stream key",
		Tags:        []string{"StreamKeys"},
	}, h.Delete)
}

// ListStreamKeysInput is the input for listing stream keys.
type ListStreamKeysInput struct {
	UserID string `query:"user_id" required:"true" doc:"Owning user"`
}

// ListStreamKeysOutput is the output for listing stream keys.
type ListStreamKeysOutput struct {
	Body struct {
		Items []StreamKeyResponse `json:"items"`
		Total int                 `json:"total"`
	}
}

// List returns a user's stream keys with redacted secrets.
func (h *StreamKeyHandler) List(ctx context.Context, input *ListStreamKeysInput) (*ListStreamKeysOutput, error) {
	userID, err := parseID(input.UserID)
	if err != nil {
		return nil, err
	}

	keys, err := h.keys.GetByUserID(ctx, userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list stream keys", err)
	}

	out := &ListStreamKeysOutput{}
	out.Body.Items = make([]StreamKeyResponse, 0, len(keys))
	for _, k := range keys {
		out.Body.Items = append(out.Body.Items, toStreamKeyResponse(k, true))
	}
	out.Body.Total = len(out.Body.Items)
	return out, nil
}

// CreateStreamKeyInput is the input for creating a stream key.
type CreateStreamKeyInput struct {
	Body struct {
		UserID    string `json:"user_id" required:"true"`
		Name      string `json:"name" required:"true" maxLength:"100"`
		Key       string `json:"key" required:"true" maxLength:"500"`
		Platform  string `json:"platform,omitempty" enum:"youtube,twitch,facebook,instagram,tiktok,custom" default:"youtube"`
		IngestURL string `json:"ingest_url,omitempty" maxLength:"500"`
		IsActive  bool   `json:"is_active,omitempty" default:"true"`
	}
}

// StreamKeyOutput wraps a single stream key response.
type StreamKeyOutput struct {
	Body StreamKeyResponse
}

// Create creates a new stream key.
func (h *StreamKeyHandler) Create(ctx context.Context, input *CreateStreamKeyInput) (*StreamKeyOutput, error) {
	userID, err := parseID(input.Body.UserID)
	if err != nil {
		return nil, err
	}

	key := &models.StreamKey{
		UserID:    userID,
		Name:      input.Body.Name,
		Key:       input.Body.Key,
		Platform:  models.Platform(input.Body.Platform),
		IngestURL: input.Body.IngestURL,
		IsActive:  input.Body.IsActive,
	}
	if key.Platform == "" {
		key.Platform = models.PlatformYouTube
	}

	if err := h.keys.Create(ctx, key); err != nil {
		return nil, mapAccountError(err)
	}
	return &StreamKeyOutput{Body: toStreamKeyResponse(key, false)}, nil
}

// StreamKeyIDInput carries a stream key id path parameter.
type StreamKeyIDInput struct {
	ID string `path:"id" doc:"Stream key ID"`
}

// Get returns one stream key including its secret.
func (h *StreamKeyHandler) Get(ctx context.Context, input *StreamKeyIDInput) (*StreamKeyOutput, error) {
	id, err := parseID(input.ID)
	if err != nil {
		return nil, err
	}

	key, err := h.keys.GetByID(ctx, id)
	if err != nil {
		return nil, mapAccountError(err)
	}
	return &StreamKeyOutput{Body: toStreamKeyResponse(key, false)}, nil
}

// UpdateStreamKeyInput is the input for updating a stream key.
type UpdateStreamKeyInput struct {
	ID   string `path:"id" doc:"Stream key ID"`
	Body struct {
		Name      string `json:"name" required:"true" maxLength:"100"`
		Key       string `json:"key" required:"true" maxLength:"500"`
		Platform  string `json:"platform,omitempty" enum:"youtube,twitch,facebook,instagram,tiktok,custom" default:"youtube"`
		IngestURL string `json:"ingest_url,omitempty" maxLength:"500"`
		IsActive  bool   `json:"is_active,omitempty"`
	}
}

// Update edits a stream key.
func (h *StreamKeyHandler) Update(ctx context.Context, input *UpdateStreamKeyInput) (*StreamKeyOutput, error) {
	id, err := parseID(input.ID)
	if err != nil {
		return nil, err
	}

	key, err := h.keys.GetByID(ctx, id)
	if err != nil {
		return nil, mapAccountError(err)
	}

	key.Name = input.Body.Name
	key.Key = input.Body.Key
	key.IngestURL = input.Body.IngestURL
	key.IsActive = input.Body.IsActive
	if input.Body.Platform != "" {
		key.Platform = models.Platform(input.Body.Platform)
	}

	if err := h.keys.Update(ctx, key); err != nil {
		return nil, mapAccountError(err)
	}
	return &StreamKeyOutput{Body: toStreamKeyResponse(key, false)}, nil
}

// DeleteStreamKeyOutput is the output for deleting a stream key.
type DeleteStreamKeyOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// Delete removes a stream key.
func (h *StreamKeyHandler) Delete(ctx context.Context, input *StreamKeyIDInput) (*DeleteStreamKeyOutput, error) {
	id, err := parseID(input.ID)
	if err != nil {
		return nil, err
	}

	if err := h.keys.Delete(ctx, id); err != nil {
		return nil, mapAccountError(err)
	}

	out := &DeleteStreamKeyOutput{}
	out.Body.Success = true
	return out, nil
}
