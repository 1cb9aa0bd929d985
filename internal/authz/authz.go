// Package authz decides whether a subject may perform an action on a target.
// Decide is a pure function over (subject, action, target).
package authz

import (
	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/models"
)

type Action string

const (
	CreateFranchise     Action = "franchise:create"
	DeleteFranchise     Action = "franchise:delete"
	ViewFranchiseAdmins Action = "franchise:view-admins"
	CreateStore         Action = "store:create"
	DeleteStore         Action = "store:delete"
	AddMenuItem         Action = "menu:add"
	ViewOwnOrders       Action = "order:list"
	PlaceOrder          Action = "order:create"
	ListUserFranchises  Action = "user:list-franchises"
	UpdateUser          Action = "user:update"
	ToggleChaos         Action = "chaos:toggle"
)

// Actions lists every action the policy knows about.
var Actions = []Action{
	CreateFranchise, DeleteFranchise, ViewFranchiseAdmins, CreateStore, DeleteStore,
	AddMenuItem, ViewOwnOrders, PlaceOrder, ListUserFranchises, UpdateUser, ToggleChaos,
}

// Subject is the authenticated caller.
type Subject struct {
	UserID string
	Roles  []models.RoleAssignment
}

func SubjectOf(u models.User) Subject {
	return Subject{UserID: u.ID, Roles: u.Roles}
}

// Target scopes an action. Empty fields mean global.
type Target struct {
	FranchiseID string
	UserID      string
}

func Global() Target { return Target{} }

func Franchise(id string) Target { return Target{FranchiseID: id} }

func User(id string) Target { return Target{UserID: id} }

type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }

func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// IsRole is true if any assignment has role, regardless of scope.
func IsRole(s Subject, role models.Role) bool {
	for _, ra := range s.Roles {
		if ra.Role == role {
			return true
		}
	}
	return false
}

// IsFranchiseeOf is true if s holds franchisee scoped to franchiseID.
func IsFranchiseeOf(s Subject, franchiseID string) bool {
	if franchiseID == "" {
		return false
	}
	for _, ra := range s.Roles {
		if ra.Role == models.RoleFranchisee && ra.ObjectID == franchiseID {
			return true
		}
	}
	return false
}

// Decide evaluates the policy table.
func Decide(s Subject, a Action, t Target) Decision {
	if s.UserID == "" {
		return deny("anonymous")
	}
	admin := IsRole(s, models.RoleAdmin)

	switch a {
	case CreateFranchise, DeleteFranchise, AddMenuItem, ViewFranchiseAdmins, ToggleChaos:
		if admin {
			return allow("admin")
		}
		return deny("admin only")

	case CreateStore, DeleteStore:
		if admin {
			return allow("admin")
		}
		if IsFranchiseeOf(s, t.FranchiseID) {
			return allow("franchisee of target franchise")
		}
		return deny("not a franchisee of this franchise")

	case ViewOwnOrders, PlaceOrder:
		return allow("authenticated")

	case ListUserFranchises, UpdateUser:
		if admin {
			return allow("admin")
		}
		if t.UserID != "" && t.UserID == s.UserID {
			return allow("self")
		}
		return deny("not self")

	default:
		return deny("unknown action")
	}
}

var denyMessages = map[Action]string{
	CreateFranchise: "unable to create a franchise",
	DeleteFranchise: "unable to delete a franchise",
	CreateStore:     "unable to create a store",
	DeleteStore:     "unable to delete a store",
	AddMenuItem:     "unable to add menu item",
	UpdateUser:      "unauthorized",
	ToggleChaos:     "unable to toggle chaos",
}

// Require returns a PermissionError when Decide denies.
func Require(s Subject, a Action, t Target) error {
	d := Decide(s, a, t)
	if d.Allowed {
		return nil
	}
	msg, ok := denyMessages[a]
	if !ok {
		msg = "forbidden"
	}
	return apperrors.NewPermissionError(msg).
		WithMetadata("action", string(a)).
		WithMetadata("reason", d.Reason)
}
