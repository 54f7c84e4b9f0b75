// Package authz holds the authorization policy as pure functions over the
// acting identity and the targeted record. The service layer consults it
// before every store mutation; transport handlers never carry role checks
// of their own.
package authz

import "github.com/helpdesk-kit/helpdesk-api/internal/domain"

// TicketField identifies an updatable ticket attribute for per-field
// permission decisions.
type TicketField string

const (
	FieldTitle       TicketField = "title"
	FieldDescription TicketField = "description"
	FieldPriority    TicketField = "priority"
	FieldStatus      TicketField = "status"
	FieldAssignedTo  TicketField = "assigned_to"
)

// HasRole reports whether role satisfies required. Managers satisfy every
// requirement.
func HasRole(role, required domain.Role) bool {
	return role == required || role == domain.RoleManager
}

// VisibilityScope narrows ticket queries for an actor. A nil field means no
// constraint on it; All short-circuits both.
type VisibilityScope struct {
	All        bool
	CreatedBy  *int64
	AssignedTo *int64
}

// ScopeFor returns the ticket visibility scope for an actor: users see what
// they created, technicians what they are assigned, managers everything.
func ScopeFor(actor domain.Actor) VisibilityScope {
	switch actor.Role {
	case domain.RoleManager:
		return VisibilityScope{All: true}
	case domain.RoleTechnician:
		id := actor.UserID
		return VisibilityScope{AssignedTo: &id}
	default:
		id := actor.UserID
		return VisibilityScope{CreatedBy: &id}
	}
}

// CanViewTicket reports whether the ticket falls inside the actor's
// visibility scope.
func CanViewTicket(actor domain.Actor, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleManager:
		return true
	case domain.RoleTechnician:
		return ticket.AssignedTo != nil && *ticket.AssignedTo == actor.UserID
	default:
		return ticket.CreatedBy == actor.UserID
	}
}

// TicketFieldAllowed reports whether the role may alter the given field.
// Fields submitted without permission are dropped silently by the caller,
// never rejected.
func TicketFieldAllowed(role domain.Role, field TicketField) bool {
	switch field {
	case FieldTitle, FieldDescription, FieldPriority, FieldStatus:
		return HasRole(role, domain.RoleTechnician)
	case FieldAssignedTo:
		return role == domain.RoleManager
	}
	return false
}

// CanDeleteTicket restricts ticket deletion to managers.
func CanDeleteTicket(role domain.Role) bool {
	return role == domain.RoleManager
}

// CanViewStats restricts queue statistics to managers.
func CanViewStats(role domain.Role) bool {
	return role == domain.RoleManager
}

// CanListTechnicians restricts the technician roster to managers.
func CanListTechnicians(role domain.Role) bool {
	return role == domain.RoleManager
}

// CanUpdateUser reports whether the actor may touch the target user record
// at all. Field-level rules are applied on top by the user service.
func CanUpdateUser(actor domain.Actor, targetID int64) bool {
	return actor.Role == domain.RoleManager || actor.UserID == targetID
}

// CanChangeRole restricts role changes to managers.
func CanChangeRole(actor domain.Actor) bool {
	return actor.Role == domain.RoleManager
}

// CanChangeEmail restricts email changes to managers.
func CanChangeEmail(actor domain.Actor) bool {
	return actor.Role == domain.RoleManager
}

// CanChangePassword permits users to rotate their own credential and
// managers to rotate anyone's.
func CanChangePassword(actor domain.Actor, targetID int64) bool {
	return actor.UserID == targetID || actor.Role == domain.RoleManager
}

// CanDeleteUser restricts user deletion to managers. Self-deletion is
// rejected separately by the service as an invalid operation.
func CanDeleteUser(role domain.Role) bool {
	return role == domain.RoleManager
}
