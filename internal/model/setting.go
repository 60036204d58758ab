package model

// Setting is a flat key/value configuration row. Values are stored as raw
// strings; callers parse them through the store's typed accessors.
type Setting struct {
	Key   string `gorm:"primaryKey;size:64" json:"key"`
	Value string `gorm:"not null" json:"value"`
}

// Setting keys recognized by the system.
const (
	SettingMaxOccupancy        = "max_occupancy"
	SettingAutoCheckoutTime    = "auto_checkout_time"
	SettingAutoCheckoutEnabled = "auto_checkout_enabled"
)
