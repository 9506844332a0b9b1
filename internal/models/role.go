package models

// DefaultRoleName is the role given to self-registered accounts and seeded at bootstrap.
const (
	DefaultRoleName        = "usuario"
	DefaultRoleDescription = "Usuario regular"
)

type Role struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}
