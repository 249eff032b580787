package models

import (
	"strings"
	"time"
)

// UserRole is the RBAC role stored on a user.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTrainer UserRole = "trainer"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleTrainer
}

// User is a row of the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Avatar       string     `db:"avatar" json:"avatar,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`

	TrainerProfile
}

// TrainerProfile is the public description of a trainer.
type TrainerProfile struct {
	Specialties     string `db:"specialties" json:"specialties"`
	Bio             string `db:"bio" json:"bio"`
	ExperienceYears int    `db:"experience_years" json:"experienceYears"`
}

// NormalizeEmail lower-cases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Specialty string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

// CreateUserRequest is the admin payload for adding a user.
type CreateUserRequest struct {
	Name     string   `json:"name" validate:"required,max=150"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserRole `json:"role" validate:"required,oneof=admin trainer"`
	Avatar   string   `json:"avatar" validate:"omitempty,url"`

	Specialties     string `json:"specialties" validate:"max=255"`
	Bio             string `json:"bio" validate:"max=2000"`
	ExperienceYears int    `json:"experienceYears" validate:"min=0,max=80"`
}

// UpdateUserRequest patches profile fields. Nil fields are left untouched.
type UpdateUserRequest struct {
	Name   *string   `json:"name" validate:"omitempty,max=150"`
	Email  *string   `json:"email" validate:"omitempty,email"`
	Role   *UserRole `json:"role" validate:"omitempty,oneof=admin trainer"`
	Avatar *string   `json:"avatar" validate:"omitempty,url"`
	Active *bool     `json:"active"`

	Specialties     *string `json:"specialties" validate:"omitempty,max=255"`
	Bio             *string `json:"bio" validate:"omitempty,max=2000"`
	ExperienceYears *int    `json:"experienceYears" validate:"omitempty,min=0,max=80"`
}

// UpdateProfileRequest is the payload a trainer may send for their own
// profile. Nil fields are left untouched.
type UpdateProfileRequest struct {
	Specialties     *string `json:"specialties" validate:"omitempty,max=255"`
	Bio             *string `json:"bio" validate:"omitempty,max=2000"`
	ExperienceYears *int    `json:"experienceYears" validate:"omitempty,min=0,max=80"`
}

// Apply copies the non-nil fields onto p.
func (r UpdateProfileRequest) Apply(p *TrainerProfile) {
	if r.Specialties != nil {
		p.Specialties = strings.TrimSpace(*r.Specialties)
	}
	if r.Bio != nil {
		p.Bio = strings.TrimSpace(*r.Bio)
	}
	if r.ExperienceYears != nil {
		p.ExperienceYears = *r.ExperienceYears
	}
}

// ChangePasswordRequest is the payload of PATCH /users/:id/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}
