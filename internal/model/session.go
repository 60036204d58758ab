package model

import "time"

// Session represents one contiguous presence interval for a member.
// CheckOut is nil while the member is still inside; a closed session is
// never mutated again.
type Session struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID     int64      `gorm:"index;not null" json:"member_id"`
	CheckIn      time.Time  `gorm:"not null;index" json:"check_in"`
	CheckOut     *time.Time `gorm:"index" json:"check_out"`
	AutoCheckout bool       `gorm:"not null;default:false" json:"auto_checkout"`

	// Associations
	Member Member `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Open reports whether the session is still in progress.
func (s *Session) Open() bool {
	return s.CheckOut == nil
}

// Duration returns the elapsed presence time, measured against now for an
// open session.
func (s *Session) Duration(now time.Time) time.Duration {
	if s.CheckOut != nil {
		return s.CheckOut.Sub(s.CheckIn)
	}
	return now.Sub(s.CheckIn)
}
