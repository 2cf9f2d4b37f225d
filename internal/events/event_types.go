package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType is the wire name of a realtime event.
type EventType string

const (
	EventTicketCreated       EventType = "ticket:created"
	EventTicketUpdated       EventType = "ticket:updated"
	EventTicketDeleted       EventType = "ticket:deleted"
	EventTicketAssigned      EventType = "ticket:assigned"
	EventTicketStatusChanged EventType = "ticket:status-changed"
	EventCommentAdded        EventType = "comment:added"
	EventAttachmentAdded     EventType = "attachment:added"
)

// AllTypes lists the whole vocabulary in a stable order.
func AllTypes() []EventType {
	return []EventType{
		EventTicketCreated,
		EventTicketUpdated,
		EventTicketDeleted,
		EventTicketAssigned,
		EventTicketStatusChanged,
		EventCommentAdded,
		EventAttachmentAdded,
	}
}

// Global reports whether the event goes to every connection rather than one room.
// A brand-new ticket has no room yet and a deleted one is gone from every dashboard.
func (t EventType) Global() bool {
	return t == EventTicketCreated || t == EventTicketDeleted
}

// Event is emitted once per committed mutation. Exactly one of Ticket,
// Comment or Attachment describes the mutated entity; deletions carry only TicketID.
type Event struct {
	ID        string
	Type      EventType
	TicketID  string
	Actor     domain.Actor
	Timestamp time.Time

	Ticket     *domain.Ticket
	Comment    *domain.CommentView
	Attachment *domain.AttachmentView

	// PreviousStatus is set on status changes.
	PreviousStatus domain.TicketStatus
	// MagicLink is the creator's freshly issued view URL, set on anonymous creation.
	MagicLink string
}
