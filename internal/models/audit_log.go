package models

import "time"

// Audit entities and actions.
const (
	AuditEntityUser         = "user"
	AuditEntityRole         = "role"
	AuditEntityPersonalData = "personal_data"

	AuditActionCreate     = "create"
	AuditActionRegister   = "register"
	AuditActionDeactivate = "deactivate"
	AuditActionReactivate = "reactivate"
	AuditActionDelete     = "delete"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// actor; nil for anonymous calls or once the actor is deleted
	UserID *uint `gorm:"index" json:"user_id,omitempty"`
	User   *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`

	Entity   string `gorm:"size:50;not null" json:"entity"`
	EntityID uint   `json:"entity_id"`
	Action   string `gorm:"size:50;not null" json:"action"`
	Details  string `gorm:"type:text" json:"details"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
