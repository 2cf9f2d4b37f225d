package auth

import "github.com/spec-kit/helpdesk/internal/domain"

// Authorizer decides ticket access outside the magic-link path.
type Authorizer struct{}

// CanAccess reports whether actor may read or comment on ticket. Admins see
// everything, other users see tickets they created or are assigned to.
func (Authorizer) CanAccess(actor domain.Actor, ticket *domain.Ticket) bool {
	if ticket == nil || actor.UserID == "" {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if ticket.CreatedByID == actor.UserID {
		return true
	}
	return ticket.AssignedToID != nil && *ticket.AssignedToID == actor.UserID
}

// CanManage reports whether actor may change status, priority, assignment or delete.
func (Authorizer) CanManage(actor domain.Actor, _ *domain.Ticket) bool {
	return actor.IsAdmin()
}
