package service

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/livemanager/livemanager/internal/models"
	"github.com/livemanager/livemanager/internal/repository"
)

const minPasswordLength = 8

// UserService manages account registration and the admin approval
// workflow. New accounts start unapproved and cannot broadcast until an
// administrator approves them.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{
		users:  users,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (s *UserService) WithLogger(logger *slog.Logger) *UserService {
	s.logger = logger
	return s
}

// Register creates a new unapproved account with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	user := &models.User{
		Username: username,
		Email:    email,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, models.ErrPasswordTooShort
	}

	if existing, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.ErrUsernameTaken
	}
	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = string(hash)
	user.IsApproved = false
	user.IsAdmin = false

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate verifies a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

// GetByID retrieves a user, or ErrUserNotFound.
func (s *UserService) GetByID(ctx context.Context, id models.ULID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

// Search filters users by a name/email substring and optional approval
// and admin flags.
func (s *UserService) Search(ctx context.Context, query string, approved, admin *bool) ([]*models.User, error) {
	return s.users.Search(ctx, query, approved, admin)
}

// Stats summarizes the account population for the admin dashboard.
type Stats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Admins   int64 `json:"admins"`
}

// Stats returns account counts by approval state.
func (s *UserService) Stats(ctx context.Context) (*Stats, error) {
	total, pending, approved, admins, err := s.users.CountByApproval(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Total: total, Pending: pending, Approved: approved, Admins: admins}, nil
}

// SetApproved grants or revokes broadcast approval.
func (s *UserService) SetApproved(ctx context.Context, id models.ULID, approved bool) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.IsApproved = approved
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user approval changed",
		slog.String("user_id", user.ID.String()),
		slog.Bool("approved", approved),
	)
	return user, nil
}

// SetAdmin grants or revokes administrator rights.
func (s *UserService) SetAdmin(ctx context.Context, id models.ULID, admin bool) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.IsAdmin = admin
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user admin flag changed",
		slog.String("user_id", user.ID.String()),
		slog.Bool("admin", admin),
	)
	return user, nil
}

// Delete removes an account.
func (s *UserService) Delete(ctx context.Context, id models.ULID) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.users.Delete(ctx, user.ID)
}
