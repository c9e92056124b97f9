package domain

import "time"

type AdminAccount struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"uniqueIndex;not null;size:150" json:"username"`
	PasswordHash string     `gorm:"not null;size:100" json:"-"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

func (AdminAccount) TableName() string {
	return "admins"
}
