package models

import (
	"strings"
	"time"
)

type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary is the public shape of a user in API responses.
type UserSummary struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email}
}

// NormalizeEmail trims surrounding whitespace. Case is preserved for storage;
// uniqueness and lookups compare lower(email).
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
