package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"attendance-backend/internal/model"
)

// Sentinel errors surfaced by the session ledger.
var (
	// ErrAlreadyOpen is returned when opening a session for a member who
	// already has one in progress.
	ErrAlreadyOpen = errors.New("member already has an open session")
	// ErrNotOpen is returned when closing a session for a member with no
	// session in progress.
	ErrNotOpen = errors.New("member has no open session")
	// ErrInvalidInterval is returned when a close timestamp is not strictly
	// after the matching check-in. The ledger is left unchanged.
	ErrInvalidInterval = errors.New("check-out time must be after check-in time")
	// ErrMemberNotFound is returned when a card UID or member id does not
	// resolve to an enrolled member.
	ErrMemberNotFound = errors.New("member not found")
)

// OpenEntry pairs a member with their currently open session.
type OpenEntry struct {
	Member  model.Member
	Session model.Session
}

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// Session ledger.
	OpenSession(ctx context.Context, memberID int64, at time.Time) (*model.Session, error)
	CloseSession(ctx context.Context, memberID int64, at time.Time, auto bool) (*model.Session, error)
	CurrentlyOpen(ctx context.Context) ([]OpenEntry, error)
	CloseAllOpen(ctx context.Context, at time.Time) (int, error)
	History(ctx context.Context, memberID int64, limit int) ([]model.Session, error)
	HistoryInRange(ctx context.Context, start, end time.Time) ([]model.Session, error)

	// Members.
	CreateMember(ctx context.Context, m *model.Member) error
	MemberByCardUID(ctx context.Context, uid string) (*model.Member, error)
	MemberByID(ctx context.Context, id int64) (*model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
	UpdateMember(ctx context.Context, m *model.Member) error
	DeleteMember(ctx context.Context, id int64) error

	// Settings.
	Setting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
	AutoCheckoutEnabled(ctx context.Context) (bool, error)
	AutoCheckoutTime(ctx context.Context) (hour, minute int, err error)
	MaxOccupancy(ctx context.Context) (int, error)

	// Admin accounts.
	CreateAdmin(ctx context.Context, a *model.Admin) error
	AdminByUsername(ctx context.Context, username string) (*model.Admin, error)
	CountAdmins(ctx context.Context) (int64, error)
}

// gormStore implements the Store interface using GORM. Ledger mutations are
// serialized behind a single write lock so the at-most-one-open-session
// invariant cannot race between the scan path and the scheduler.
type gormStore struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for handlers that run read-only
// queries directly.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}
