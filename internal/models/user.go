package models

import "strings"

// Role is a capability held by a user.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleFranchisee Role = "franchisee"
	RoleDiner      Role = "diner"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFranchisee, RoleDiner:
		return true
	}
	return false
}

// RoleAssignment grants a role. ObjectID is the franchise id for franchisee
// assignments and empty otherwise.
type RoleAssignment struct {
	Role     Role   `json:"role"`
	ObjectID string `json:"objectId,omitempty"`
}

// User is the public view of an account. It never carries the password hash.
type User struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Email string           `json:"email"`
	Roles []RoleAssignment `json:"roles"`
}

// UserRecord is a user together with its stored bcrypt hash.
type UserRecord struct {
	User
	PasswordHash string `json:"-"`
}

// UserSummary is how admins appear inside a franchise.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// HasRole reports whether any assignment has role, regardless of scope.
func (u User) HasRole(role Role) bool {
	for _, ra := range u.Roles {
		if ra.Role == role {
			return true
		}
	}
	return false
}

// FranchiseIDs returns the franchises the user holds a franchisee role for.
func (u User) FranchiseIDs() []string {
	var ids []string
	for _, ra := range u.Roles {
		if ra.Role == RoleFranchisee && ra.ObjectID != "" {
			ids = append(ids, ra.ObjectID)
		}
	}
	return ids
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
