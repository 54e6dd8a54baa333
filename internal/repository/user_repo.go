package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/livemanager/livemanager/internal/models"
)

// userRepo implements UserRepository using GORM.
type userRepo struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

// Create creates a new user.
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID. Returns nil if not found.
func (r *userRepo) GetByID(ctx context.Context, id models.ULID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting user by ID: %w", err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by username. Returns nil if not found.
func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email. Returns nil if not found.
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return &user, nil
}

// GetAll retrieves all users, newest first.
func (r *userRepo) GetAll(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("getting users: %w", err)
	}
	return users, nil
}

// GetAdmins retrieves all admin users.
func (r *userRepo) GetAdmins(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := r.db.WithContext(ctx).Where("is_admin = ?", true).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("getting admin users: %w", err)
	}
	return users, nil
}

// Search retrieves users matching an optional username/email substring and
// optional approval/admin filters.
func (r *userRepo) Search(ctx context.Context, query string, approved *bool, admin *bool) ([]*models.User, error) {
	q := r.db.WithContext(ctx).Model(&models.User{}).Order("created_at DESC")

	if query != "" {
		pattern := "%" + query + "%"
		q = q.Where("username LIKE ? OR email LIKE ?", pattern, pattern)
	}
	if approved != nil {
		q = q.Where("is_approved = ?", *approved)
	}
	if admin != nil {
		q = q.Where("is_admin = ?", *admin)
	}

	var users []*models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return users, nil
}

// Update updates an existing user.
func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// Delete deletes a user by ID.
func (r *userRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// CountByApproval returns user counts for the admin dashboard.
func (r *userRepo) CountByApproval(ctx context.Context) (total, pending, approved, admins int64, err error) {
	db := r.db.WithContext(ctx).Model(&models.User{})

	if err = db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, 0, 0, fmt.Errorf("counting users: %w", err)
	}
	if err = db.Session(&gorm.Session{}).Where("is_approved = ?", false).Count(&pending).Error; err != nil {
		return 0, 0, 0, 0, fmt.Errorf("counting pending users: %w", err)
	}
	if err = db.Session(&gorm.Session{}).Where("is_approved = ?", true).Count(&approved).Error; err != nil {
		return 0, 0, 0, 0, fmt.Errorf("counting approved users: %w", err)
	}
	if err = db.Session(&gorm.Session{}).Where("is_admin = ?", true).Count(&admins).Error; err != nil {
		return 0, 0, 0, 0, fmt.Errorf("counting admin users: %w", err)
	}
	return total, pending, approved, admins, nil
}
