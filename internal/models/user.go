package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleSubmitter UserRole = "submitter"
	RoleReviewer  UserRole = "reviewer"
)

// ValidRole reports whether r is a member of the closed role set.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleSubmitter, RoleReviewer:
		return true
	}
	return false
}

// User is keyed by its handle (username). Identity fields are immutable after
// registration; only the role may change, and only a reviewer may change it.
type User struct {
	Username     string   `json:"username" gorm:"primaryKey;size:100"`
	FullName     string   `json:"full_name" gorm:"size:100"`
	Email        *string  `json:"email" gorm:"size:255"`
	Role         UserRole `json:"role" gorm:"not null;size:20;default:submitter;index"`
	PasswordHash string   `json:"-" gorm:"not null;size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// ContactAddress returns the user's notification address, or "" when the
// address on file is blank or malformed. A usable address must contain "@";
// anything else is silently excluded from recipient lists.
func (u *User) ContactAddress() string {
	if u.Email == nil {
		return ""
	}
	addr := strings.TrimSpace(*u.Email)
	if addr == "" || !strings.Contains(addr, "@") {
		return ""
	}
	return addr
}
