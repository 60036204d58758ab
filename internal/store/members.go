package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"attendance-backend/internal/model"
)

// CreateMember enrolls a new member with their card assignment.
func (s *gormStore) CreateMember(ctx context.Context, m *model.Member) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// MemberByCardUID resolves a scanned card UID to a member.
func (s *gormStore) MemberByCardUID(ctx context.Context, uid string) (*model.Member, error) {
	var m model.Member
	err := s.db.WithContext(ctx).Where("card_uid = ?", uid).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up card %q: %w", uid, err)
	}
	return &m, nil
}

// MemberByID fetches a member by id.
func (s *gormStore) MemberByID(ctx context.Context, id int64) (*model.Member, error) {
	var m model.Member
	err := s.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up member %d: %w", id, err)
	}
	return &m, nil
}

// ListMembers returns all members ordered by name.
func (s *gormStore) ListMembers(ctx context.Context) ([]model.Member, error) {
	var members []model.Member
	if err := s.db.WithContext(ctx).Order("name").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// UpdateMember saves changes to a member record. The card UID is the
// member's identity and is never updated here.
func (s *gormStore) UpdateMember(ctx context.Context, m *model.Member) error {
	result := s.db.WithContext(ctx).Model(m).Updates(map[string]any{
		"name":            m.Name,
		"student_id":      m.StudentID,
		"email":           m.Email,
		"graduating_year": m.GraduatingYear,
		"assigned_task":   m.AssignedTask,
		"position":        m.Position,
		"admin":           m.Admin,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update member %d: %w", m.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// DeleteMember removes a member along with all of their sessions.
func (s *gormStore) DeleteMember(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("member_id = ?", id).Delete(&model.Session{}).Error; err != nil {
			return fmt.Errorf("failed to delete sessions for member %d: %w", id, err)
		}
		result := tx.Delete(&model.Member{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete member %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrMemberNotFound
		}
		return nil
	})
}
