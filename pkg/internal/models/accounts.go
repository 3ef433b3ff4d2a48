package models

type Account struct {
	BaseModel

	Uuid         string  `json:"uuid" gorm:"uniqueIndex"`
	Name         string  `json:"name"`
	Email        string  `json:"email" gorm:"uniqueIndex"`
	Avatar       *string `json:"avatar"`
	PasswordHash string  `json:"-"`

	Meetings []Meeting `json:"meetings,omitempty" gorm:"foreignKey:HostID"`
}
