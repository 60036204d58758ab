package model

import "time"

// Member represents an enrolled member with an assigned RFID card.
type Member struct {
	ID             int64  `gorm:"primaryKey" json:"id"`
	CardUID        string `gorm:"uniqueIndex;size:64;not null" json:"card_uid"`
	Name           string `gorm:"size:256;not null" json:"name"`
	StudentID      string `gorm:"uniqueIndex;size:64;not null" json:"student_id"`
	Email          string `gorm:"size:256;not null" json:"email"`
	GraduatingYear int    `json:"graduating_year"`
	AssignedTask   string `gorm:"size:256" json:"assigned_task"`
	Position       string `gorm:"size:128" json:"position"`
	Score          int64  `gorm:"not null;default:0" json:"score"`
	Admin          bool   `gorm:"not null;default:false" json:"admin"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Associations
	Sessions []Session `gorm:"foreignKey:MemberID" json:"-"`
}
