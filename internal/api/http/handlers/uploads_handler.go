package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
)

// inlineTypes may render in the browser. Everything else, HTML and SVG
// included, is forced to download.
var inlineTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"text/plain":      true,
}

func baseMediaType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// UploadsHandler serves stored attachments.
type UploadsHandler struct {
	service *service.TicketService
}

// NewUploadsHandler constructs handler.
func NewUploadsHandler(ticketService *service.TicketService) *UploadsHandler {
	return &UploadsHandler{service: ticketService}
}

// Download GET /api/uploads/:ticketId/:file. Accepts a session or ?token=.
func (h *UploadsHandler) Download(c *fiber.Ctx) error {
	viewer := service.AttachmentViewer{MagicToken: c.Query("token")}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		actor := principal.Actor()
		viewer.Actor = &actor
	}

	attachment, file, err := h.service.OpenAttachment(c.UserContext(), viewer, c.Params("ticketId"), c.Params("file"))
	if err != nil {
		return err
	}

	disposition := "attachment"
	if inlineTypes[baseMediaType(attachment.MimeType)] {
		disposition = "inline"
	}
	c.Set(fiber.HeaderContentType, attachment.MimeType)
	c.Set(fiber.HeaderContentDisposition, disposition+"; filename="+strconv.Quote(attachment.FileName))
	c.Set("X-Content-Type-Options", "nosniff")
	return c.SendStream(file, int(attachment.FileSize))
}
