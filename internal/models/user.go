package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleCitizen  = "citizen"
	RoleOfficial = "official"
	RoleAdmin    = "admin"
)

// User represents a citizen, officer or administrator account.
type User struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`

	FullName     string  `gorm:"not null" json:"fullName"`
	MobileNumber string  `json:"mobileNumber"`
	Email        *string `json:"email"`
	VillageName  *string `json:"villageName"`
	Role         string  `gorm:"default:citizen" json:"role"`

	// TelegramChatID links the account to a Telegram chat for status
	// notifications. Nil when the user never linked a chat.
	TelegramChatID *int64 `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate generates a UUID primary key when the caller did not set one.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
