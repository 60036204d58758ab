package model

import "time"

// Admin is a dashboard operator account.
type Admin struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:128;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FullName     string    `gorm:"size:256;not null" json:"full_name"`
	CreatedAt    time.Time `json:"created_at"`
}
