package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/livemanager/livemanager/internal/service"
)

// UserHandler handles account registration and admin user management.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *UserHandler) WithLogger(logger *slog.Logger) *UserHandler {
	h.logger = logger
	return h
}

// Register registers the user routes with the API.
func (h *UserHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "registerUser",
		Method:      "POST",
		Path:        "/api/v1/auth/register",
		Summary:     "Register a new account",
		Description: "New accounts cannot broadcast until approved by an administrator.",
		Tags:        []string{"Users"},
	}, h.RegisterUser)

	huma.Register(api, huma.Operation{
		OperationID: "listUsers",
		Method:      "GET",
		Path:        "/api/v1/users",
		Summary:     "Search users",
		Tags:        []string{"Users"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getUserStats",
		Method:      "GET",
		Path:        "/api/v1/users/stats",
		Summary:     "Account statistics",
		Tags:        []string{"Users"},
	}, h.GetStats)

	huma.Register(api, huma.Operation{
		OperationID: "getUser",
		Method:      "GET",
		Path:        "/api/v1/users/{id}",
		Summary:     "Get a user",
		Tags:        []string{"Users"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "approveUser",
		Method:      "POST",
		Path:        "/api/v1/users/{id}/approve",
		Summary:     "Approve a user for broadcasting",
		Tags:        []string{"Users"},
	}, h.Approve)

	huma.Register(api, huma.Operation{
		OperationID: "rejectUser",
		Method:      "POST",
		Path:        "/api/v1/users/{id}/reject",
		Summary:     "Revoke a user's broadcast approval",
		Tags:        []string{"Users"},
	}, h.Reject)

	huma.Register(api, huma.Operation{
		OperationID: "setUserAdmin",
		Method:      "PUT",
		Path:        "/api/v1/users/{id}/admin",
		Summary:     "Grant or revoke administrator rights",
		Tags:        []string{"Users"},
	}, h.SetAdmin)

	huma.Register(api, huma.Operation{
		OperationID: "deleteUser",
		Method:      "DELETE",
		Path:        "/api/v1/users/{id}",
		Summary:     "Delete a user",
		Tags:        []string{"Users"},
	}, h.Delete)
}

// RegisterUserInput is the input for account registration.
type RegisterUserInput struct {
	Body struct {
		Username string `json:"username" required:"true" maxLength:"150"`
		Email    string `json:"email" required:"true" format:"email" maxLength:"254"`
		Password string `json:"password" required:"true" minLength:"8" maxLength:"128"`
	}
}

// UserOutput wraps a single user response.
type UserOutput struct {
	Body UserResponse
}

// RegisterUser creates a new unapproved account.
func (h *UserHandler) RegisterUser(ctx context.Context, input *RegisterUserInput) (*UserOutput, error) {
	user, err := h.users.Register(ctx, input.Body.Username, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, mapAccountError(err)
	}
	return &UserOutput{Body: toUserResponse(user)}, nil
}

// ListUsersInput is the input for searching users.
type ListUsersInput struct {
	Search   string `query:"search" doc:"Substring match on username or email"`
	Approved string `query:"approved" enum:",true,false" doc:"Filter by approval state"`
	Admin    string `query:"admin" enum:",true,false" doc:"Filter by admin flag"`
}

// ListUsersOutput is the output for searching users.
type ListUsersOutput struct {
	Body struct {
		Items []UserResponse `json:"items"`
		Total int            `json:"total"`
	}
}

func boolFilter(raw string) *bool {
	switch raw {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}

// List searches users by name/email and flags.
func (h *UserHandler) List(ctx context.Context, input *ListUsersInput) (*ListUsersOutput, error) {
	users, err := h.users.Search(ctx, input.Search, boolFilter(input.Approved), boolFilter(input.Admin))
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to search users", err)
	}

	out := &ListUsersOutput{}
	out.Body.Items = make([]UserResponse, 0, len(users))
	for _, u := range users {
		out.Body.Items = append(out.Body.Items, toUserResponse(u))
	}
	out.Body.Total = len(out.Body.Items)
	return out, nil
}

// StatsOutput is the output for account statistics.
type StatsOutput struct {
	Body service.Stats
}

// GetStats returns account counts by approval state.
func (h *UserHandler) GetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	stats, err := h.users.Stats(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to compute stats", err)
	}
	return &StatsOutput{Body: *stats}, nil
}

// UserIDInput carries a user id path parameter.
type UserIDInput struct {
	ID string `path:"id" doc:"User ID"`
}

// Get returns one user.
func (h *UserHandler) Get(ctx context.Context, input *UserIDInput) (*UserOutput, error) {
	id, err := parseID(input.ID)
	if err != nil {
		return nil, err
	}

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapAccountError(err)
	}
	return &UserOutput{Body: toUserResponse(user)}, nil
}

// Approve grants broadcast approval.
func (h *UserHandler) Approve(ctx context.Context, input *UserIDInput) (*UserOutput, error) {
	return h.setApproved(ctx, input.ID, true)
}

// Reject revokes broadcast approval.
func (h *UserHandler) Reject(ctx context.Context, input *UserIDInput) (*UserOutput, error) {
	return h.setApproved(ctx, input.ID, false)
}

func (h *UserHandler) setApproved(ctx context.Context, rawID string, approved bool) (*UserOutput, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	user, err := h.users.SetApproved(ctx, id, approved)
	if err != nil {
		return nil, mapAccountError(err)
	}
	return &UserOutput{Body: toUserResponse(user)}, nil
}

// SetAdminInput is the input for changing a user's admin flag.
type SetAdminInput struct {
	ID   string `path:"id" doc:"User ID"`
	Body struct {
		Admin bool `json:"admin"`
	}
}

// SetAdmin grants or revokes administrator rights.
func (h *UserHandler) SetAdmin(ctx context.Context, input *SetAdminInput) (*UserOutput, error) {
	id, err := parseID(input.ID)
	if err != nil {
		return nil, err
	}

	user, err := h.users.SetAdmin(ctx, id, input.Body.Admin)
	if err != nil {
		return nil, mapAccountError(err)
	}
	return &UserOutput{Body: toUserResponse(user)}, nil
}

// DeleteUserOutput is the output for deleting a user.
type DeleteUserOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// Delete removes a user account.
func (h *UserHandler) Delete(ctx context.Context, input *UserIDInput) (*DeleteUserOutput, error) {
	id, err := parseID(input.ID)
	if err != nil {
		return nil, err
	}

	if err := h.users.Delete(ctx, id); err != nil {
		return nil, mapAccountError(err)
	}

	out := &DeleteUserOutput{}
	out.Body.Success = true
	return out, nil
}
