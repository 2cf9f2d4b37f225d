package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// ViewByMagic resolves a magic token or admin short id and returns the
// matching ticket: the short id's ticket, or the creator's most recent one.
// Internal comments are never included.
func (s *TicketService) ViewByMagic(ctx context.Context, credential string) (*domain.TicketView, error) {
	access, err := s.magic.Resolve(ctx, credential)
	if err != nil {
		return nil, err
	}
	ticket, err := s.magicTicket(ctx, access, "")
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, ticket, false)
}

// CommentByMagic posts a public comment as the token's owner on ticketID,
// which must belong to them, or on their most recent ticket when empty.
// Only full tokens are accepted here; short ids grant read access only.
func (s *TicketService) CommentByMagic(ctx context.Context, token, ticketID, content string) (*domain.CommentView, error) {
	userID, err := s.magic.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidCredential()
		}
		return nil, err
	}

	ticket, err := s.magicTicket(ctx, auth.Access{UserID: userID}, strings.TrimSpace(ticketID))
	if err != nil {
		return nil, err
	}

	actor := domain.ActorFromUser(user)
	actor.ViaMagicLink = true
	return s.createComment(ctx, actor, ticket, content, false)
}

func (s *TicketService) magicTicket(ctx context.Context, access auth.Access, requested string) (*domain.Ticket, error) {
	if access.TicketID != "" {
		requested = access.TicketID
	}

	if requested != "" {
		ticket, err := s.loadTicket(ctx, requested)
		if err != nil {
			return nil, err
		}
		if ticket.CreatedByID != access.UserID {
			return nil, apperrors.NewForbidden("ticket does not belong to this link")
		}
		return ticket, nil
	}

	ticket, err := s.tickets.LatestByCreator(ctx, access.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	return ticket, nil
}

// ReissueMagicLink mints a new link for the ticket's creator, invalidating the old one.
func (s *TicketService) ReissueMagicLink(ctx context.Context, actor domain.Actor, ticketID string) (*auth.IssuedLink, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanManage(actor, ticket) {
		return nil, apperrors.NewForbidden("only administrators can issue links")
	}
	link, err := s.magic.Issue(ctx, ticket.CreatedByID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("magic link reissued", zap.String("ticket_id", ticket.ID), zap.String("actor_id", actor.UserID))
	return &link, nil
}

// InvalidateMagicLink clears a user's token.
func (s *TicketService) InvalidateMagicLink(ctx context.Context, actor domain.Actor, userID string) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("only administrators can revoke links")
	}
	if err := s.magic.Invalidate(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": userID})
		}
		return err
	}
	return nil
}
