//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
)

const (
	maxUserNameLen  = 100
	maxUserEmailLen = 255
	minPasswordLen  = 8
	maxPasswordLen  = 72 // bcrypt input limit
)

// User represents a persisted user account.
// PasswordHash is never serialized.
type User struct {
	ID           string          `json:"id"         db:"id"`
	Email        string          `json:"email"      db:"email"`
	FirstName    string          `json:"first_name" db:"first_name"`
	LastName     string          `json:"last_name"  db:"last_name"`
	Role         domainauth.Role `json:"role"       db:"role"`
	Active       bool            `json:"active"     db:"active"`
	PasswordHash string          `json:"-"          db:"password_hash"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Principal projects the account into its session representation.
func (u *User) Principal() domainauth.Principal {
	return domainauth.Principal{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Active:    u.Active,
	}
}

// RegisterUserRequest represents parameters to create a user account.
type RegisterUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role,omitempty"`
}

// Validate validates RegisterUserRequest and normalizes email and role in place.
func (r *RegisterUserRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" {
		return errors.New("email is required")
	}
	if utf8.RuneCountInString(r.Email) > maxUserEmailLen {
		return errors.New("email cannot exceed 255 characters")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("email is not a valid address")
	}
	if len(r.Password) < minPasswordLen {
		return errors.New("password must be at least 8 characters")
	}
	if len(r.Password) > maxPasswordLen {
		return errors.New("password cannot exceed 72 characters")
	}
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if utf8.RuneCountInString(r.FirstName) > maxUserNameLen ||
		utf8.RuneCountInString(r.LastName) > maxUserNameLen {
		return errors.New("name cannot exceed 100 characters")
	}
	if r.Role != "" {
		role, err := domainauth.ParseRole(r.Role)
		if err != nil {
			return err
		}
		r.Role = string(role)
	}
	return nil
}

// LoginRequest represents credentials submitted to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates LoginRequest and normalizes the email in place.
func (r *LoginRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}
