package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketsHandler manages session ticket endpoints.
type TicketsHandler struct {
	service   *service.TicketService
	validator *RequestValidator
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, validator *RequestValidator) *TicketsHandler {
	return &TicketsHandler{service: ticketService, validator: validator}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}
	filter := parseTicketQuery(c)
	tickets, err := h.service.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewTicketList(tickets),
		"meta": fiber.Map{"limit": filter.Limit, "offset": filter.Offset},
	})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}
	view, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(view)})
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Update(c.UserContext(), actor, c.Params("id"), service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Category:    req.Category,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddComment POST /api/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.service.AddComment(c.UserContext(), actor, c.Params("id"), req.Content, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(view)})
}

// AddAttachment POST /api/tickets/:id/attachments with a multipart "file" field.
func (h *TicketsHandler) AddAttachment(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file is required", map[string]any{"field": "file"})
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable upload", map[string]any{"field": "file"})
	}
	defer file.Close()

	view, err := h.service.AddAttachment(c.UserContext(), actor, c.Params("id"), service.UploadInput{
		FileName: header.Filename,
		MimeType: header.Header.Get(fiber.HeaderContentType),
		Content:  file,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAttachmentResponse(view)})
}

// ReissueMagicLink POST /api/tickets/:id/magic-link.
func (h *TicketsHandler) ReissueMagicLink(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}
	link, err := h.service.ReissueMagicLink(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.MagicLinkResponse{MagicLink: link.URL, ExpiresAt: link.ExpiresAt}})
}

// InvalidateMagicLink DELETE /api/users/:id/magic-link.
func (h *TicketsHandler) InvalidateMagicLink(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}
	if err := h.service.InvalidateMagicLink(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Stats GET /api/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatsResponse(stats, actor.IsAdmin())})
}

func sessionActor(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor(), nil
}

// parseTicketQuery reads ?status=OPEN,WAITING&priority=HIGH&assignee=<id|none>&q=&limit=&offset=.
func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{Limit: 20}
	for _, s := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(s)))
	}
	for _, p := range splitCSV(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(p)))
	}
	switch assignee := strings.TrimSpace(c.Query("assignee")); assignee {
	case "":
	case "none", "unassigned":
		filter.Unassigned = true
	default:
		filter.AssigneeID = &assignee
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		if v > 100 {
			v = 100
		}
		filter.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		filter.Offset = v
	}
	return filter
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
