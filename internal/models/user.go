package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleMentor    UserRole = "MENTOR"
	RoleStudent   UserRole = "STUDENT"
	RoleMarketing UserRole = "MARKETING"
	RoleSupport   UserRole = "SUPPORT"
)

// StaffRoles are the roles allowed on back-office endpoints.
var StaffRoles = []UserRole{RoleAdmin, RoleMentor, RoleMarketing, RoleSupport}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentProfile holds student-specific fields attached to a user.
type StudentProfile struct {
	UserID      string    `db:"user_id" json:"user_id"`
	StudentCode string    `db:"student_code" json:"student_code"`
	Phone       string    `db:"phone" json:"phone"`
	Address     string    `db:"address" json:"address"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MentorProfile holds mentor-specific fields attached to a user.
type MentorProfile struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Expertise string    `db:"expertise" json:"expertise"`
	Bio       string    `db:"bio" json:"bio"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UserDetail combines a user with its optional profiles for responses.
type UserDetail struct {
	User
	StudentCode *string `db:"student_code" json:"student_code,omitempty"`
	Expertise   *string `db:"expertise" json:"expertise,omitempty"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
