package service

import (
	"context"
	"log/slog"

	"github.com/livemanager/livemanager/internal/models"
	"github.com/livemanager/livemanager/internal/repository"
)

// StreamKeyService manages platform credentials. The key secret itself is
// stored as given and only rendered into the RTMP target at launch time.
type StreamKeyService struct {
	keys   repository.StreamKeyRepository
	logger *slog.Logger
}

// NewStreamKeyService creates a new StreamKeyService.
func NewStreamKeyService(keys repository.StreamKeyRepository) *StreamKeyService {
	return &StreamKeyService{
		keys:   keys,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (s *StreamKeyService) WithLogger(logger *slog.Logger) *StreamKeyService {
	s.logger = logger
	return s
}

// Create validates and persists a new stream key. Keys for known
// platforms get the platform's default ingest URL unless one is given.
func (s *StreamKeyService) Create(ctx context.Context, key *models.StreamKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return err
	}

	s.logger.Info("stream key created",
		slog.String("stream_key_id", key.ID.String()),
		slog.String("platform", string(key.Platform)),
	)
	return nil
}

// GetByID retrieves a stream key, or ErrStreamKeyNotFound.
func (s *StreamKeyService) GetByID(ctx context.Context, id models.ULID) (*models.StreamKey, error) {
	key, err := s.keys.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, models.ErrStreamKeyNotFound
	}
	return key, nil
}

// GetByUserID retrieves the stream keys owned by a user.
func (s *StreamKeyService) GetByUserID(ctx context.Context, userID models.ULID) ([]*models.StreamKey, error) {
	return s.keys.GetByUserID(ctx, userID)
}

// Update validates and persists edits to a stream key.
func (s *StreamKeyService) Update(ctx context.Context, key *models.StreamKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	existing, err := s.GetByID(ctx, key.ID)
	if err != nil {
		return err
	}
	key.UserID = existing.UserID
	return s.keys.Update(ctx, key)
}

// Delete removes a stream key.
func (s *StreamKeyService) Delete(ctx context.Context, id models.ULID) error {
	key, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.keys.Delete(ctx, key.ID)
}
