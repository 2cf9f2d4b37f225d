package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/realtime"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// RealtimeHandler exposes the hub over websockets and long polling.
type RealtimeHandler struct {
	hub     realtime.Hub
	polls   *realtime.PollManager
	ping    time.Duration
	origins []string
	logger  *zap.Logger
}

// NewRealtimeHandler constructs handler. allowedOrigins is a comma separated
// list; "*" or empty accepts any origin.
func NewRealtimeHandler(hub realtime.Hub, polls *realtime.PollManager, ping time.Duration, allowedOrigins string, logger *zap.Logger) *RealtimeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" && o != "*" {
			origins = append(origins, o)
		}
	}
	return &RealtimeHandler{hub: hub, polls: polls, ping: ping, origins: origins, logger: logger.Named("realtime")}
}

// RequireUpgrade rejects plain HTTP requests on the websocket route.
func (h *RealtimeHandler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Socket GET /ws.
func (h *RealtimeHandler) Socket() fiber.Handler {
	cfg := websocket.Config{}
	if len(h.origins) > 0 {
		cfg.Origins = h.origins
	}
	return websocket.New(func(conn *websocket.Conn) {
		realtime.ServeConn(h.hub, conn, h.ping, h.logger)
	}, cfg)
}

// OpenPoll POST /realtime/poll.
func (h *RealtimeHandler) OpenPoll(c *fiber.Ctx) error {
	sid, err := h.polls.Open()
	if err != nil {
		return pollError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"sid": sid}})
}

// Poll GET /realtime/poll/:sid returns queued frames, waiting briefly when none are queued.
func (h *RealtimeHandler) Poll(c *fiber.Ctx) error {
	frames, err := h.polls.Drain(c.UserContext(), c.Params("sid"))
	if err != nil {
		return pollError(err)
	}
	return c.JSON(fiber.Map{"data": frames})
}

// SendPoll POST /realtime/poll/:sid accepts one join-ticket or leave-ticket frame.
func (h *RealtimeHandler) SendPoll(c *fiber.Ctx) error {
	if err := h.polls.Send(c.Params("sid"), c.Body()); err != nil {
		return pollError(err)
	}
	return c.SendStatus(http.StatusAccepted)
}

// ClosePoll DELETE /realtime/poll/:sid.
func (h *RealtimeHandler) ClosePoll(c *fiber.Ctx) error {
	h.polls.Close(c.Params("sid"))
	return c.SendStatus(http.StatusNoContent)
}

func pollError(err error) error {
	switch {
	case errors.Is(err, realtime.ErrUnknownSession), errors.Is(err, realtime.ErrUnknownConnection):
		return apperrors.NewNotFound("poll session", nil)
	case errors.Is(err, realtime.ErrBadFrame):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, realtime.ErrHubClosed):
		return apperrors.NewDomainError("UNAVAILABLE", "realtime hub is shutting down", http.StatusServiceUnavailable, nil)
	default:
		return err
	}
}
