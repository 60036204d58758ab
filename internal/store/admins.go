package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"attendance-backend/internal/model"
)

// ErrAdminNotFound is returned when an admin username does not exist.
var ErrAdminNotFound = errors.New("admin not found")

// CreateAdmin stores a dashboard operator account.
func (s *gormStore) CreateAdmin(ctx context.Context, a *model.Admin) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create admin %q: %w", a.Username, err)
	}
	return nil
}

// AdminByUsername fetches an admin account by username.
func (s *gormStore) AdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var a model.Admin
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin %q: %w", username, err)
	}
	return &a, nil
}

// CountAdmins returns the number of admin accounts.
func (s *gormStore) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Admin{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}
