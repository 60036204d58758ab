package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"attendance-backend/internal/model"
)

// OpenSession creates a new open session for the member. Fails with
// ErrAlreadyOpen if one is already in progress.
func (s *gormStore) OpenSession(ctx context.Context, memberID int64, at time.Time) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var session model.Session
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := findOpenSession(tx, memberID)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrAlreadyOpen
		}

		session = model.Session{MemberID: memberID, CheckIn: at}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("failed to create session for member %d: %w", memberID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CloseSession closes the member's open session at the given time. Fails
// with ErrNotOpen if there is none and with ErrInvalidInterval if the close
// time is not strictly after the check-in; in both cases the ledger is left
// unchanged.
func (s *gormStore) CloseSession(ctx context.Context, memberID int64, at time.Time, auto bool) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var session *model.Session
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := findOpenSession(tx, memberID)
		if err != nil {
			return err
		}
		if open == nil {
			return ErrNotOpen
		}
		var err2 error
		session, err2 = closeSession(tx, open, at, auto)
		return err2
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// CloseAllOpen force-closes every open session as an auto-checkout and
// returns the number of sessions affected. Calling it with no open sessions
// is not an error.
func (s *gormStore) CloseAllOpen(ctx context.Context, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open []model.Session
		if err := tx.Where("check_out IS NULL").Find(&open).Error; err != nil {
			return fmt.Errorf("failed to fetch open sessions: %w", err)
		}
		for i := range open {
			if _, err := closeSession(tx, &open[i], at, true); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CurrentlyOpen returns all members currently inside, most recent arrival
// first.
func (s *gormStore) CurrentlyOpen(ctx context.Context) ([]OpenEntry, error) {
	var sessions []model.Session
	err := s.db.WithContext(ctx).
		Preload("Member").
		Where("check_out IS NULL").
		Order("check_in DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open sessions: %w", err)
	}

	entries := make([]OpenEntry, len(sessions))
	for i, sess := range sessions {
		entries[i] = OpenEntry{Member: sess.Member, Session: sess}
	}
	return entries, nil
}

// History returns up to limit sessions for the member, check-in descending.
func (s *gormStore) History(ctx context.Context, memberID int64, limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	var sessions []model.Session
	err := s.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("check_in DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for member %d: %w", memberID, err)
	}
	return sessions, nil
}

// HistoryInRange returns all sessions whose check-in falls within
// [start, end], check-in descending, with members preloaded.
func (s *gormStore) HistoryInRange(ctx context.Context, start, end time.Time) ([]model.Session, error) {
	var sessions []model.Session
	err := s.db.WithContext(ctx).
		Preload("Member").
		Where("check_in BETWEEN ? AND ?", start, end).
		Order("check_in DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions in range: %w", err)
	}
	return sessions, nil
}

// findOpenSession returns the member's open session, or nil if there is
// none.
func findOpenSession(tx *gorm.DB, memberID int64) (*model.Session, error) {
	var session model.Session
	err := tx.Where("member_id = ? AND check_out IS NULL", memberID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up open session for member %d: %w", memberID, err)
	}
	return &session, nil
}

// closeSession stamps the check-out on an open session and credits the
// member's score with one point per whole minute of presence.
func closeSession(tx *gorm.DB, session *model.Session, at time.Time, auto bool) (*model.Session, error) {
	if !at.After(session.CheckIn) {
		return nil, ErrInvalidInterval
	}

	session.CheckOut = &at
	session.AutoCheckout = auto
	if err := tx.Save(session).Error; err != nil {
		return nil, fmt.Errorf("failed to close session %d: %w", session.ID, err)
	}

	minutes := int64(at.Sub(session.CheckIn).Minutes())
	if minutes > 0 {
		err := tx.Model(&model.Member{}).
			Where("id = ?", session.MemberID).
			UpdateColumn("score", gorm.Expr("score + ?", minutes)).Error
		if err != nil {
			return nil, fmt.Errorf("failed to credit score for member %d: %w", session.MemberID, err)
		}
	}
	return session, nil
}
