package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive              UserStatus = "ACTIVE"
	UserStatusInactive            UserStatus = "INACTIVE"
	UserStatusSuspended           UserStatus = "SUSPENDED"
	UserStatusPendingVerification UserStatus = "PENDING_VERIFICATION"
)

// UserRole enumerates account roles.
type UserRole string

const (
	UserRoleAdmin        UserRole = "ADMIN"
	UserRoleSupportStaff UserRole = "SUPPORT_STAFF"
	UserRoleEndUser      UserRole = "END_USER"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleSupportStaff, UserRoleEndUser:
		return true
	}
	return false
}

// User is the domain model for accounts that report and work on issues.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         UserRole
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// Clone returns a deep copy so stored records are never shared with callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.LastLoginAt != nil {
		ts := *u.LastLoginAt
		out.LastLoginAt = &ts
	}
	return &out
}
