package domain

import "time"

// Role controls what a user may see and mutate. Managers implicitly hold
// every narrower role's permissions.
type Role string

const (
	RoleUser       Role = "user"
	RoleTechnician Role = "technician"
	RoleManager    Role = "manager"
)

// Valid reports whether the role is one of the three known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleTechnician, RoleManager:
		return true
	}
	return false
}

// User is an account in the helpdesk: requester, technician or manager.
// PasswordHash never appears in any serialized representation.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Actor is the authenticated identity threaded explicitly into every core
// operation. The transport layer is responsible for producing it.
type Actor struct {
	UserID int64
	Role   Role
}
