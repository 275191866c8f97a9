package models

import (
	"strings"
	"time"
)

// UserRole represents the portal roles.
type UserRole string

const (
	RoleStudent   UserRole = "student"
	RoleTeacher   UserRole = "teacher"
	RolePresident UserRole = "president"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RolePresident:
		return true
	default:
		return false
	}
}

// Privileged roles may publish announcements and raise high alerts.
func (r UserRole) Privileged() bool {
	return r == RoleTeacher || r == RolePresident
}

// User is an account record. The role never changes after signup.
type User struct {
	Email        string   `json:"email"`
	Role         UserRole `json:"role"`
	PasswordHash string   `json:"pwHash"`
	MustChange   bool     `json:"mustChange"`
}

// Users is the users collection keyed by normalized email.
type Users map[string]User

// Session is the single active login.
type Session struct {
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"ts"`
}

// NormalizeEmail lower-cases and trims an email so it can be used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
