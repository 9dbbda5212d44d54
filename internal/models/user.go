package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleInstructor UserRole = "instructor"
	RoleTrainee    UserRole = "trainee"
	RoleSuperAdmin UserRole = "superadmin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleInstructor, RoleTrainee, RoleSuperAdmin:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Role         UserRole  `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role             *UserRole
	Active           *bool
	ExcludeSuperuser bool
	Search           string
	Page             int
	PageSize         int
	SortBy           string
	SortOrder        string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// UpdateProfileRequest is a partial update of the caller's own profile.
type UpdateProfileRequest struct {
	Username  *string `json:"username" validate:"omitnil,min=3,max=150"`
	Email     *string `json:"email" validate:"omitnil,email,max=254"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
}

// CreateUserRequest is the super-admin payload for provisioning accounts.
type CreateUserRequest struct {
	Username  string   `json:"username" validate:"required,min=3,max=150"`
	Email     string   `json:"email" validate:"required,email,max=254"`
	Password  string   `json:"password" validate:"required,min=6"`
	FirstName string   `json:"first_name" validate:"max=150"`
	LastName  string   `json:"last_name" validate:"max=150"`
	Role      UserRole `json:"role" validate:"required,oneof=instructor trainee"`
	IsActive  *bool    `json:"is_active"`
}

// UpdateUserRequest is the super-admin partial update. Role is immutable.
type UpdateUserRequest struct {
	Email     *string `json:"email" validate:"omitnil,email,max=254"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	IsActive  *bool   `json:"is_active"`
}

// RoleCount aggregates users per role and activity.
type RoleCount struct {
	Role     UserRole `db:"role" json:"role"`
	Active   int      `db:"active" json:"active"`
	Inactive int      `db:"inactive" json:"inactive"`
}
