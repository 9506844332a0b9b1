package models

// PersonalData keeps a person's identity apart from the login credentials.
type PersonalData struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	FirstName string `gorm:"size:100;not null" json:"first_name"`
	LastName  string `gorm:"size:100;not null" json:"last_name"`
}

func (PersonalData) TableName() string {
	return "personal_data"
}
