package models

import "time"

// User is a login account. Role and PersonalData are referenced, never owned:
// the constraints restrict their deletion while a user points at them.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Email    string `gorm:"size:150;not null;uniqueIndex" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"`

	PersonalDataID uint          `gorm:"not null;index" json:"personal_data_id"`
	PersonalData   *PersonalData `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"personal_data,omitempty"`

	RoleID uint  `gorm:"not null;index" json:"role_id"`
	Role   *Role `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"role,omitempty"`

	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}
