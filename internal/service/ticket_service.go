package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// FileStore keeps attachment bytes.
type FileStore interface {
	Save(ctx context.Context, ticketID, originalName string, r io.Reader) (storage.StoredFile, error)
	Open(ticketID, name string) (*os.File, error)
	Remove(ticketID, name string) error
	RemoveTicket(ticketID string) error
}

// MagicLinks is the subset of the magic-link manager the ticket flows use.
type MagicLinks interface {
	Issue(ctx context.Context, userID string) (auth.IssuedLink, error)
	Validate(ctx context.Context, token string) (string, error)
	Invalidate(ctx context.Context, userID string) error
	Resolve(ctx context.Context, input string) (auth.Access, error)
}

// TicketService coordinates ticket workflows. Every mutation persists first
// and then publishes exactly one event; subscribers handle realtime fan-out
// and email.
type TicketService struct {
	users       repository.UserRepository
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	magic       MagicLinks
	files       FileStore
	dispatcher  events.Dispatcher
	authz       auth.Authorizer
	logger      *zap.Logger
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	UserRepo       repository.UserRepository
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	MagicLinks     MagicLinks
	Files          FileStore
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		users:       deps.UserRepo,
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		magic:       deps.MagicLinks,
		files:       deps.Files,
		dispatcher:  deps.Dispatcher,
		logger:      logger.Named("tickets"),
		now:         time.Now,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
}

// AnonymousTicketInput is a ticket submitted without a session.
type AnonymousTicketInput struct {
	Name  string
	Email string
	TicketCreateInput
}

// AnonymousTicketResult returns the new ticket and, for guests, the view link
// that goes out by email.
type AnonymousTicketResult struct {
	Ticket    *domain.Ticket
	MagicLink string
	ExpiresAt time.Time
}

// TicketListFilter narrows ticket listings.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	AssigneeID *string
	Unassigned bool
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketUpdateInput carries the fields an admin may change. Nil means unchanged.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Category    *domain.TicketCategory
	// AssigneeID set to an empty string unassigns.
	AssigneeID *string
}

// CreateAnonymous finds or creates the guest, stores the ticket and issues a
// magic link when the creator is a guest. The link only leaves through the
// ticket-created email.
func (s *TicketService) CreateAnonymous(ctx context.Context, input AnonymousTicketInput) (*AnonymousTicketResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if len(input.Name) < 2 {
		return nil, apperrors.NewValidationError("name must be at least 2 characters", map[string]any{"field": "name"})
	}
	if input.Email == "" {
		return nil, apperrors.NewValidationError("email is required", map[string]any{"field": "email"})
	}
	ticket, err := s.newTicket(input.TicketCreateInput)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindOrCreateGuest(ctx, input.Name, input.Email)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.NewForbidden("account disabled")
	}

	ticket.CreatedByID = user.ID
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	result := &AnonymousTicketResult{Ticket: ticket}
	// Registered accounts sign in; minting for them would hand their
	// credential to whoever typed their address.
	if user.Role == domain.RoleGuest {
		link, err := s.magic.Issue(ctx, user.ID)
		if err != nil {
			s.logger.Error("magic link issue failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
			return nil, apperrors.NewInternalError(err)
		}
		result.MagicLink = link.URL
		result.ExpiresAt = link.ExpiresAt
	}

	s.publish(ctx, events.Event{
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		Actor:     domain.ActorFromUser(user),
		Ticket:    ticket,
		MagicLink: result.MagicLink,
	})
	s.logger.Info("anonymous ticket created", zap.String("ticket_id", ticket.ID), zap.String("user_id", user.ID))
	return result, nil
}

// Create stores a ticket for a session user.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	ticket, err := s.newTicket(input)
	if err != nil {
		return nil, err
	}
	ticket.CreatedByID = actor.UserID
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Ticket:   ticket,
	})
	return ticket, nil
}

func (s *TicketService) newTicket(input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if n := len([]rune(title)); n < 5 || n > 200 {
		return nil, apperrors.NewValidationError("title must be 5 to 200 characters", map[string]any{"field": "title"})
	}
	if len([]rune(description)) < 10 {
		return nil, apperrors.NewValidationError("description must be at least 10 characters", map[string]any{"field": "description"})
	}
	if !domain.ValidCategory(input.Category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"field": "category"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority"})
	}
	return &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		Category:    input.Category,
	}, nil
}

// List returns tickets visible to actor. Non-admins only see their own.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if actor.IsAdmin() {
		repoFilter.AssignedToID = filter.AssigneeID
		repoFilter.Unassigned = filter.Unassigned
	} else {
		owner := actor.UserID
		repoFilter.CreatedByID = &owner
	}
	return s.tickets.ListWithFilter(ctx, repoFilter)
}

// Get returns the full view of a ticket the actor may access.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.TicketView, error) {
	ticket, err := s.accessibleTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, ticket, actor.IsAdmin())
}

// Update applies admin changes and publishes one event, choosing
// ticket:assigned over ticket:status-changed over ticket:updated.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanManage(actor, ticket) {
		return nil, apperrors.NewForbidden("only administrators can update tickets")
	}

	before := *ticket
	if err := s.applyUpdate(ctx, ticket, input); err != nil {
		return nil, err
	}

	assigned := !sameAssignee(before.AssignedToID, ticket.AssignedToID)
	statusChanged := before.Status != ticket.Status
	otherChanged := before.Title != ticket.Title || before.Description != ticket.Description ||
		before.Priority != ticket.Priority || before.Category != ticket.Category
	if !assigned && !statusChanged && !otherChanged {
		return ticket, nil
	}

	if statusChanged {
		switch ticket.Status {
		case domain.TicketStatusResolved, domain.TicketStatusClosed:
			if ticket.ResolvedAt == nil {
				now := s.now()
				ticket.ResolvedAt = &now
			}
		default:
			ticket.ResolvedAt = nil
		}
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	event := events.Event{TicketID: ticket.ID, Actor: actor, Ticket: ticket}
	switch {
	case assigned:
		event.Type = events.EventTicketAssigned
	case statusChanged:
		event.Type = events.EventTicketStatusChanged
		event.PreviousStatus = before.Status
	default:
		event.Type = events.EventTicketUpdated
	}
	s.publish(ctx, event)
	return ticket, nil
}

func (s *TicketService) applyUpdate(ctx context.Context, ticket *domain.Ticket, input TicketUpdateInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if n := len([]rune(title)); n < 5 || n > 200 {
			return apperrors.NewValidationError("title must be 5 to 200 characters", map[string]any{"field": "title"})
		}
		ticket.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if len([]rune(description)) < 10 {
			return apperrors.NewValidationError("description must be at least 10 characters", map[string]any{"field": "description"})
		}
		ticket.Description = description
	}
	if input.Status != nil {
		if !domain.ValidStatus(*input.Status) {
			return apperrors.NewValidationError("unknown status", map[string]any{"field": "status"})
		}
		ticket.Status = *input.Status
	}
	if input.Priority != nil {
		if !domain.ValidPriority(*input.Priority) {
			return apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority"})
		}
		ticket.Priority = *input.Priority
	}
	if input.Category != nil {
		if !domain.ValidCategory(*input.Category) {
			return apperrors.NewValidationError("unknown category", map[string]any{"field": "category"})
		}
		ticket.Category = *input.Category
	}
	if input.AssigneeID != nil {
		id := strings.TrimSpace(*input.AssigneeID)
		if id == "" {
			ticket.AssignedToID = nil
			return nil
		}
		assignee, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("assignee not found", map[string]any{"field": "assignee_id"})
			}
			return err
		}
		if !assignee.IsAdmin() || !assignee.IsActive {
			return apperrors.NewValidationError("assignee must be an active administrator", map[string]any{"field": "assignee_id"})
		}
		ticket.AssignedToID = &assignee.ID
	}
	return nil
}

// Delete removes a ticket with its comments and files.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, ticketID string) error {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !s.authz.CanManage(actor, ticket) {
		return apperrors.NewForbidden("only administrators can delete tickets")
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return err
	}
	if s.files != nil {
		if err := s.files.RemoveTicket(ticket.ID); err != nil {
			s.logger.Warn("remove ticket files failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	s.publish(ctx, events.Event{Type: events.EventTicketDeleted, TicketID: ticket.ID, Actor: actor})
	return nil
}

// AddComment stores a comment from a session user. Only admins may post internal notes;
// the flag is silently dropped for everyone else.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID, content string, internal bool) (*domain.CommentView, error) {
	ticket, err := s.accessibleTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return s.createComment(ctx, actor, ticket, content, internal && actor.IsAdmin())
}

func (s *TicketService) createComment(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, content string, internal bool) (*domain.CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", map[string]any{"field": "content"})
	}
	comment := &domain.Comment{
		TicketID:   ticket.ID,
		UserID:     actor.UserID,
		Content:    content,
		IsInternal: internal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	author, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		s.logger.Warn("comment author lookup failed", zap.String("user_id", actor.UserID), zap.Error(err))
		author = nil
	}
	view := &domain.CommentView{Comment: comment, Author: author}
	s.publish(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    actor,
		Ticket:   ticket,
		Comment:  view,
	})
	return view, nil
}

// Stats counts tickets visible to actor.
func (s *TicketService) Stats(ctx context.Context, actor domain.Actor) (*repository.TicketStats, error) {
	var owner *string
	if !actor.IsAdmin() {
		id := actor.UserID
		owner = &id
	}
	return s.tickets.Stats(ctx, owner)
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) accessibleTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanAccess(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// buildView loads the ticket's people, comments and attachments.
func (s *TicketService) buildView(ctx context.Context, ticket *domain.Ticket, includeInternal bool) (*domain.TicketView, error) {
	people := make(map[string]*domain.User)
	person := func(id string) *domain.User {
		if id == "" {
			return nil
		}
		if u, ok := people[id]; ok {
			return u
		}
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				s.logger.Warn("user lookup failed", zap.String("user_id", id), zap.Error(err))
			}
			u = nil
		}
		people[id] = u
		return u
	}

	view := &domain.TicketView{Ticket: ticket, CreatedBy: person(ticket.CreatedByID)}
	if ticket.AssignedToID != nil {
		view.AssignedTo = person(*ticket.AssignedToID)
	}

	comments, err := s.comments.ListByTicket(ctx, ticket.ID, includeInternal)
	if err != nil {
		return nil, err
	}
	view.Comments = make([]domain.CommentView, 0, len(comments))
	for i := range comments {
		view.Comments = append(view.Comments, domain.CommentView{Comment: &comments[i], Author: person(comments[i].UserID)})
	}

	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	view.Attachments = make([]domain.AttachmentView, 0, len(attachments))
	for i := range attachments {
		view.Attachments = append(view.Attachments, domain.AttachmentView{Attachment: &attachments[i], UploadedBy: person(attachments[i].UploadedByID)})
	}
	return view, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	s.dispatcher.Publish(ctx, event)
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
