package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignupRequest creates an account in the must-change state.
type SignupRequest struct {
	Email string   `json:"email" validate:"required,email"`
	Role  UserRole `json:"role" validate:"required,oneof=student teacher president"`
}

// SignupResponse returns the temporary password to show the new user.
type SignupResponse struct {
	Email             string   `json:"email"`
	Role              UserRole `json:"role"`
	TemporaryPassword string   `json:"temporary_password"`
}

// LoginRequest holds credentials and the role the user claims.
type LoginRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required"`
	Role     UserRole `json:"role" validate:"required,oneof=student teacher president"`
}

// LoginResult is the outcome of a login attempt. Session is nil when MustChange is set.
type LoginResult struct {
	MustChange bool
	Session    *Session
}

// ChangePasswordRequest sets a personal password.
type ChangePasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"new_password" validate:"required,min=4,max=72"`
}

// AuthResponse is returned by the HTTP layer after login or password change.
type AuthResponse struct {
	MustChange     bool      `json:"must_change"`
	AccessToken    string    `json:"access_token,omitempty"`
	ExpiresIn      int64     `json:"expires_in,omitempty"`
	PasswordTicket string    `json:"password_ticket,omitempty"`
	Session        *Session  `json:"session,omitempty"`
	IssuedAt       time.Time `json:"issued_at"`
}

// Token purposes.
const (
	TokenPurposeAccess         = "access"
	TokenPurposePasswordChange = "password_change"
)

// JWTClaims is the token payload. SessionAt pins an access token to one stored session.
type JWTClaims struct {
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	Purpose   string   `json:"purpose"`
	SessionAt int64    `json:"session_at,omitempty"`
	jwt.RegisteredClaims
}

// Session rebuilds the session the claims were issued for.
func (c *JWTClaims) Session() Session {
	return Session{Email: c.Email, Role: c.Role, CreatedAt: time.Unix(0, c.SessionAt).UTC()}
}
