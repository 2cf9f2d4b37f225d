// Package worker registers the subscribers that run after each committed mutation.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/service"
)

// Publisher is the part of the realtime hub the broadcaster needs.
type Publisher interface {
	PublishToRoom(ticketID, event string, payload any)
	PublishToAll(event string, payload any)
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartRealtimeWorker forwards every domain event to the hub. Handlers run
// inline so frames leave in commit order.
func StartRealtimeWorker(dispatcher events.Dispatcher, hub Publisher, logger *zap.Logger) {
	if dispatcher == nil || hub == nil {
		return
	}
	b := &broadcaster{hub: hub, logger: logger}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	b.logger = b.logger.Named("broadcaster")
	for _, et := range events.AllTypes() {
		dispatcher.Subscribe(et, b.handle)
	}
}

type broadcaster struct {
	hub    Publisher
	logger *zap.Logger
}

func (b *broadcaster) handle(_ context.Context, event events.Event) error {
	payload, ok := Payload(event)
	if !ok {
		b.logger.Debug("event without payload", zap.String("event", string(event.Type)), zap.String("ticket_id", event.TicketID))
		return nil
	}
	if event.Type.Global() {
		b.hub.PublishToAll(string(event.Type), payload)
		return nil
	}
	b.hub.PublishToRoom(event.TicketID, string(event.Type), payload)
	return nil
}

// Payload returns the JSON body a realtime frame carries for event: the
// mutated entity, or {id} for deletions.
func Payload(event events.Event) (any, bool) {
	switch event.Type {
	case events.EventTicketDeleted:
		return dto.DeletedResponse{ID: event.TicketID}, true
	case events.EventCommentAdded:
		if event.Comment == nil || event.Comment.Comment == nil {
			return nil, false
		}
		return dto.NewCommentResponse(event.Comment), true
	case events.EventAttachmentAdded:
		if event.Attachment == nil || event.Attachment.Attachment == nil {
			return nil, false
		}
		return dto.NewAttachmentResponse(event.Attachment), true
	default:
		if event.Ticket == nil {
			return nil, false
		}
		return dto.NewTicketResponse(event.Ticket), true
	}
}
