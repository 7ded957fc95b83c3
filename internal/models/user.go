package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Role is the authorization level of an account
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserProfile is the account profile returned by the agency API
type UserProfile struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name"`
	Email     string    `json:"email" validate:"required,email"`
	Phone     string    `json:"phone"`
	Role      Role      `json:"role" validate:"required,oneof=user admin"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsAdmin reports whether the profile carries the admin role
func (u *UserProfile) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Clone returns a copy that can be handed out without exposing the original
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// AuthResponse is the body returned by /auth/login and /auth/register
type AuthResponse struct {
	AccessToken string      `json:"accessToken" validate:"required"`
	User        UserProfile `json:"user"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password" validate:"required,min=8"`
}

// ProfileUpdate is a partial profile update; nil fields are left untouched
type ProfileUpdate struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty"`
}

// Empty reports whether the update carries no fields
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil
}

// Service is an entry of the public service catalog
type Service struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

var validate = validator.New()

// Validate checks a value against its struct tags
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
