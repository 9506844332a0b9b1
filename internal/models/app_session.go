package models

import "time"

// AppSession is a refresh-token session opened by a login from a device.
type AppSession struct {
	ID     uint  `gorm:"primaryKey" json:"id"`
	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	RefreshToken string    `gorm:"size:255;not null;uniqueIndex" json:"-"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`

	Device     string `gorm:"size:100" json:"device,omitempty"`
	AppVersion string `gorm:"size:20" json:"app_version,omitempty"`
	IP         string `gorm:"size:50" json:"ip,omitempty"`

	StartedAt    time.Time `gorm:"autoCreateTime" json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
}

func (AppSession) TableName() string {
	return "app_sessions"
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *AppSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
