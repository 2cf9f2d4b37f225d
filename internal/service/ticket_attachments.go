package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UploadInput describes one uploaded file.
type UploadInput struct {
	FileName string
	MimeType string
	Content  io.Reader
}

// AttachmentViewer identifies who downloads a file: a session actor or a
// magic token passed as a query parameter.
type AttachmentViewer struct {
	Actor      *domain.Actor
	MagicToken string
}

// AddAttachment stores the file and its metadata.
func (s *TicketService) AddAttachment(ctx context.Context, actor domain.Actor, ticketID string, input UploadInput) (*domain.AttachmentView, error) {
	ticket, err := s.accessibleTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.FileName)
	if name == "" {
		return nil, apperrors.NewValidationError("file name is required", map[string]any{"field": "file"})
	}

	stored, err := s.files.Save(ctx, ticket.ID, name, input.Content)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, apperrors.NewPayloadTooLarge("file exceeds upload limit")
		}
		return nil, err
	}

	mime := input.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	attachment := &domain.Attachment{
		TicketID:     ticket.ID,
		UploadedByID: actor.UserID,
		FileName:     name,
		FilePath:     stored.PublicPath,
		FileSize:     stored.Size,
		MimeType:     mime,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		if rmErr := s.files.Remove(ticket.ID, stored.Name); rmErr != nil {
			s.logger.Warn("orphan upload left on disk", zap.String("ticket_id", ticket.ID), zap.String("file", stored.Name), zap.Error(rmErr))
		}
		return nil, err
	}

	uploader, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		uploader = nil
	}
	view := &domain.AttachmentView{Attachment: attachment, UploadedBy: uploader}
	s.publish(ctx, events.Event{
		Type:       events.EventAttachmentAdded,
		TicketID:   ticket.ID,
		Actor:      actor,
		Ticket:     ticket,
		Attachment: view,
	})
	return view, nil
}

// OpenAttachment authorizes the viewer and opens the stored file. Session
// users need ticket access; magic tokens must belong to the ticket's creator.
// Nothing about the file is looked up until the viewer is authorized.
func (s *TicketService) OpenAttachment(ctx context.Context, viewer AttachmentViewer, ticketID, fileName string) (*domain.Attachment, *os.File, error) {
	var tokenOwner string
	switch {
	case viewer.Actor != nil:
	case strings.TrimSpace(viewer.MagicToken) != "":
		userID, err := s.magic.Validate(ctx, viewer.MagicToken)
		if err != nil {
			return nil, nil, err
		}
		tokenOwner = userID
	default:
		return nil, nil, apperrors.NewUnauthorized("authentication required")
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if viewer.Actor != nil {
		if !s.authz.CanAccess(*viewer.Actor, ticket) {
			return nil, nil, apperrors.NewForbidden("access denied")
		}
	} else if tokenOwner != ticket.CreatedByID {
		return nil, nil, apperrors.NewForbidden("access denied")
	}

	attachment, err := s.attachments.GetByPath(ctx, ticketID, storage.PublicPath(ticketID, fileName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("file", nil)
		}
		return nil, nil, err
	}

	f, err := s.files.Open(ticketID, fileName)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, storage.ErrInvalidName) {
			return nil, nil, apperrors.NewNotFound("file", nil)
		}
		return nil, nil, err
	}
	return attachment, f, nil
}
