package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
)

// MagicHandler serves the anonymous submission and magic-link routes.
type MagicHandler struct {
	service   *service.TicketService
	validator *RequestValidator
}

// NewMagicHandler constructs handler.
func NewMagicHandler(ticketService *service.TicketService, validator *RequestValidator) *MagicHandler {
	return &MagicHandler{service: ticketService, validator: validator}
}

// CreateAnonymous POST /api/tickets/anonymous.
func (h *MagicHandler) CreateAnonymous(c *fiber.Ctx) error {
	var req dto.AnonymousTicketRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.service.CreateAnonymous(c.UserContext(), service.AnonymousTicketInput{
		Name:  req.Name,
		Email: req.Email,
		TicketCreateInput: service.TicketCreateInput{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			Priority:    req.Priority,
		},
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AnonymousTicketResponse{
		TicketID: res.Ticket.ID,
		Message:  "Ticket created. Check your email for a link to follow it.",
	}})
}

// View GET /api/tickets/magic/:token. The token may also be a ticket id prefix.
func (h *MagicHandler) View(c *fiber.Ctx) error {
	view, err := h.service.ViewByMagic(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(view)})
}

// Comment POST /api/tickets/magic/:token/comment.
func (h *MagicHandler) Comment(c *fiber.Ctx) error {
	var req dto.MagicCommentRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.service.CommentByMagic(c.UserContext(), c.Params("token"), req.TicketID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(view)})
}
