package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// NotificationService turns domain events into emails.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	renderer   *notify.Renderer
	mailer     notify.Mailer
	metrics    *observability.Metrics
	logger     *zap.Logger
	expiryDays int
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	UserRepo   repository.UserRepository
	Renderer   *notify.Renderer
	Mailer     notify.Mailer
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// ExpiryDays is quoted in guest emails.
	ExpiryDays int
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		users:      deps.UserRepo,
		renderer:   deps.Renderer,
		mailer:     deps.Mailer,
		metrics:    deps.Metrics,
		logger:     logger.Named("notifications"),
		expiryDays: deps.ExpiryDays,
	}
}

// RegisterHandlers subscribes to events. Mail runs off the request path.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.SubscribeAsync(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.SubscribeAsync(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.SubscribeAsync(events.EventTicketStatusChanged, n.handleStatusChanged)
	n.dispatcher.SubscribeAsync(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.SubscribeAsync(events.EventCommentAdded, n.handleCommentAdded)
	n.dispatcher.SubscribeAsync(events.EventAttachmentAdded, n.handleAttachmentAdded)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	if event.Ticket == nil {
		return nil
	}
	creator := n.user(ctx, event.Ticket.CreatedByID)
	if creator != nil {
		n.send(ctx, notify.KindTicketCreated, notify.TemplateData{
			Recipient: creator,
			Ticket:    event.Ticket,
			MagicLink: event.MagicLink,
		})
	}

	admins, err := n.users.ListActiveAdmins(ctx)
	if err != nil {
		return err
	}
	for i := range admins {
		if admins[i].ID == event.Ticket.CreatedByID {
			continue
		}
		n.send(ctx, notify.KindAdminNew, notify.TemplateData{
			Recipient: &admins[i],
			Actor:     creator,
			Ticket:    event.Ticket,
		})
	}
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	if event.Ticket == nil || event.Ticket.AssignedToID == nil || *event.Ticket.AssignedToID == event.Actor.UserID {
		return nil
	}
	if assignee := n.user(ctx, *event.Ticket.AssignedToID); assignee != nil {
		n.send(ctx, notify.KindAssigned, notify.TemplateData{Recipient: assignee, Ticket: event.Ticket})
	}
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	return n.notifyCreator(ctx, event, notify.KindStatusChanged)
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	return n.notifyCreator(ctx, event, notify.KindTicketUpdated)
}

func (n *NotificationService) notifyCreator(ctx context.Context, event events.Event, kind string) error {
	if event.Ticket == nil || event.Ticket.CreatedByID == event.Actor.UserID {
		return nil
	}
	if creator := n.user(ctx, event.Ticket.CreatedByID); creator != nil {
		n.send(ctx, kind, notify.TemplateData{
			Recipient: creator,
			Actor:     n.user(ctx, event.Actor.UserID),
			Ticket:    event.Ticket,
			OldStatus: event.PreviousStatus,
		})
	}
	return nil
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	if event.Ticket == nil || event.Comment == nil || event.Comment.Comment == nil {
		return nil
	}
	internal := event.Comment.Comment.IsInternal
	actor := event.Comment.Author
	if actor == nil {
		actor = n.user(ctx, event.Actor.UserID)
	}
	for _, recipient := range n.participants(ctx, event) {
		if internal && !recipient.IsAdmin() {
			continue
		}
		n.send(ctx, notify.KindComment, notify.TemplateData{
			Recipient: recipient,
			Actor:     actor,
			Ticket:    event.Ticket,
			Comment:   event.Comment.Comment,
		})
	}
	return nil
}

func (n *NotificationService) handleAttachmentAdded(ctx context.Context, event events.Event) error {
	if event.Ticket == nil || event.Attachment == nil || event.Attachment.Attachment == nil {
		return nil
	}
	actor := event.Attachment.UploadedBy
	if actor == nil {
		actor = n.user(ctx, event.Actor.UserID)
	}
	for _, recipient := range n.participants(ctx, event) {
		n.send(ctx, notify.KindAttachment, notify.TemplateData{
			Recipient:  recipient,
			Actor:      actor,
			Ticket:     event.Ticket,
			Attachment: event.Attachment.Attachment,
		})
	}
	return nil
}

// participants returns the creator and assignee, without the actor and without duplicates.
func (n *NotificationService) participants(ctx context.Context, event events.Event) []*domain.User {
	ids := []string{event.Ticket.CreatedByID}
	if event.Ticket.AssignedToID != nil {
		ids = append(ids, *event.Ticket.AssignedToID)
	}
	seen := map[string]bool{event.Actor.UserID: true}
	var out []*domain.User
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if u := n.user(ctx, id); u != nil {
			out = append(out, u)
		}
	}
	return out
}

func (n *NotificationService) user(ctx context.Context, id string) *domain.User {
	if id == "" {
		return nil
	}
	u, err := n.users.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			n.logger.Warn("recipient lookup failed", zap.String("user_id", id), zap.Error(err))
		}
		return nil
	}
	if !u.IsActive {
		return nil
	}
	return u
}

// send renders and delivers one email. Failures are logged and counted, never returned.
func (n *NotificationService) send(ctx context.Context, kind string, data notify.TemplateData) {
	data.ExpiryDays = n.expiryDays
	msg, err := n.renderer.Render(kind, data)
	if err != nil {
		n.metrics.RecordNotification(kind, "render_error")
		n.logger.Error("render email", zap.String("kind", kind), zap.Error(err))
		return
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.metrics.RecordNotification(kind, "failed")
		n.logger.Warn("send email", zap.String("kind", kind), zap.String("to", msg.To), zap.Error(err))
		return
	}
	n.metrics.RecordNotification(kind, "sent")
}
