package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"attendance-backend/internal/model"
)

// Setting returns the raw string value for a settings key.
func (s *gormStore) Setting(ctx context.Context, key string) (string, error) {
	var setting model.Setting
	err := s.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("setting %q is not configured", key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return setting.Value, nil
}

// PutSetting creates or replaces a settings key.
func (s *gormStore) PutSetting(ctx context.Context, key, value string) error {
	setting := model.Setting{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("failed to write setting %q: %w", key, err)
	}
	return nil
}

// AutoCheckoutEnabled reports whether the daily auto-checkout sweep is
// turned on. "1" and "true" count as enabled.
func (s *gormStore) AutoCheckoutEnabled(ctx context.Context) (bool, error) {
	raw, err := s.Setting(ctx, model.SettingAutoCheckoutEnabled)
	if err != nil {
		return false, err
	}
	return raw == "1" || strings.EqualFold(raw, "true"), nil
}

// AutoCheckoutTime parses the configured HH:MM cutoff into an hour and
// minute of day.
func (s *gormStore) AutoCheckoutTime(ctx context.Context) (int, int, error) {
	raw, err := s.Setting(ctx, model.SettingAutoCheckoutTime)
	if err != nil {
		return 0, 0, err
	}
	hour, minute, err := parseClock(raw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid %s setting: %w", model.SettingAutoCheckoutTime, err)
	}
	return hour, minute, nil
}

// MaxOccupancy returns the configured occupancy cap.
func (s *gormStore) MaxOccupancy(ctx context.Context) (int, error) {
	raw, err := s.Setting(ctx, model.SettingMaxOccupancy)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s setting %q", model.SettingMaxOccupancy, raw)
	}
	return n, nil
}

// parseClock parses a 24-hour "HH:MM" string.
func parseClock(raw string) (int, int, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour, minute, nil
}
