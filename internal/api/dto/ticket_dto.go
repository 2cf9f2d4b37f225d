package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// CreateTicketRequest payload for session users.
type CreateTicketRequest struct {
	Title       string                `json:"title" validate:"required,min=5,max=200"`
	Description string                `json:"description" validate:"required,min=10"`
	Category    domain.TicketCategory `json:"category" validate:"required,oneof=HARDWARE SOFTWARE NETWORK ACCESS OTHER"`
	Priority    domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// AnonymousTicketRequest payload for submissions without an account.
type AnonymousTicketRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
	CreateTicketRequest
}

// AnonymousTicketResponse acknowledges a submission. The view link is only
// sent by email.
type AnonymousTicketResponse struct {
	TicketID string `json:"ticket_id"`
	Message  string `json:"message"`
}

// UpdateTicketRequest carries admin edits. Absent fields stay unchanged and an
// empty assignee_id unassigns.
type UpdateTicketRequest struct {
	Title       *string                `json:"title" validate:"omitempty,min=5,max=200"`
	Description *string                `json:"description" validate:"omitempty,min=10"`
	Status      *domain.TicketStatus   `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS WAITING RESOLVED CLOSED"`
	Priority    *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Category    *domain.TicketCategory `json:"category" validate:"omitempty,oneof=HARDWARE SOFTWARE NETWORK ACCESS OTHER"`
	AssigneeID  *string                `json:"assignee_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string `json:"content" validate:"required,max=10000"`
	IsInternal bool   `json:"is_internal"`
}

// MagicCommentRequest payload for comments posted through a magic link.
type MagicCommentRequest struct {
	Content  string `json:"content" validate:"required,max=10000"`
	TicketID string `json:"ticket_id"`
}

// TicketResponse is the flat ticket shape used in lists and realtime frames.
type TicketResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	Category     domain.TicketCategory `json:"category"`
	CreatedByID  string                `json:"created_by_id"`
	AssignedToID *string               `json:"assigned_to_id"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	ResolvedAt   *time.Time            `json:"resolved_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketResponse
	CreatedBy   *UserSummary         `json:"created_by"`
	AssignedTo  *UserSummary         `json:"assigned_to"`
	Comments    []CommentResponse    `json:"comments"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// CommentResponse represents a thread message.
type CommentResponse struct {
	ID         string       `json:"id"`
	TicketID   string       `json:"ticket_id"`
	Content    string       `json:"content"`
	IsInternal bool         `json:"is_internal"`
	Author     *UserSummary `json:"author"`
	CreatedAt  time.Time    `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string       `json:"id"`
	TicketID   string       `json:"ticket_id"`
	FileName   string       `json:"file_name"`
	MimeType   string       `json:"mime_type"`
	SizeBytes  int64        `json:"size_bytes"`
	URL        string       `json:"url"`
	UploadedBy *UserSummary `json:"uploaded_by"`
	CreatedAt  time.Time    `json:"created_at"`
}

// DeletedResponse is the body of ticket:deleted.
type DeletedResponse struct {
	ID string `json:"id"`
}

// MagicLinkResponse is returned when an admin re-issues a link.
type MagicLinkResponse struct {
	MagicLink string    `json:"magic_link"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StatsResponse aggregates ticket counts.
type StatsResponse struct {
	Total      int                           `json:"total"`
	Unassigned *int                          `json:"unassigned,omitempty"`
	ByStatus   map[domain.TicketStatus]int   `json:"by_status"`
	ByPriority map[domain.TicketPriority]int `json:"by_priority"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		Category:     t.Category,
		CreatedByID:  t.CreatedByID,
		AssignedToID: t.AssignedToID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		ResolvedAt:   t.ResolvedAt,
	}
}

// NewTicketList maps a slice of tickets.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewTicketDetail maps a full view.
func NewTicketDetail(v *domain.TicketView) TicketDetailResponse {
	resp := TicketDetailResponse{
		TicketResponse: NewTicketResponse(v.Ticket),
		CreatedBy:      NewUserSummary(v.CreatedBy),
		AssignedTo:     NewUserSummary(v.AssignedTo),
		Comments:       make([]CommentResponse, 0, len(v.Comments)),
		Attachments:    make([]AttachmentResponse, 0, len(v.Attachments)),
	}
	for i := range v.Comments {
		resp.Comments = append(resp.Comments, NewCommentResponse(&v.Comments[i]))
	}
	for i := range v.Attachments {
		resp.Attachments = append(resp.Attachments, NewAttachmentResponse(&v.Attachments[i]))
	}
	return resp
}

// NewCommentResponse maps a comment with its author.
func NewCommentResponse(v *domain.CommentView) CommentResponse {
	c := v.Comment
	return CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		Content:    c.Content,
		IsInternal: c.IsInternal,
		Author:     NewUserSummary(v.Author),
		CreatedAt:  c.CreatedAt,
	}
}

// NewAttachmentResponse maps an attachment. URL is the download route.
func NewAttachmentResponse(v *domain.AttachmentView) AttachmentResponse {
	a := v.Attachment
	return AttachmentResponse{
		ID:         a.ID,
		TicketID:   a.TicketID,
		FileName:   a.FileName,
		MimeType:   a.MimeType,
		SizeBytes:  a.FileSize,
		URL:        "/api" + a.FilePath,
		UploadedBy: NewUserSummary(v.UploadedBy),
		CreatedAt:  a.CreatedAt,
	}
}

// NewStatsResponse maps stats. The unassigned count is admin-only.
func NewStatsResponse(s *repository.TicketStats, admin bool) StatsResponse {
	resp := StatsResponse{Total: s.Total, ByStatus: s.ByStatus, ByPriority: s.ByPriority}
	if admin {
		unassigned := s.Unassigned
		resp.Unassigned = &unassigned
	}
	return resp
}
