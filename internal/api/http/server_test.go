package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/realtime"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/worker"
)

const (
	adminEmail    = "admin@desk.test"
	adminPassword = "admin-password"
)

type testServer struct {
	app        *fiber.App
	store      *memory.Store
	hub        *realtime.RoomHub
	dispatcher events.Dispatcher
	tickets    *service.TicketService
	outbox     *outbox
}

// outbox records every email the notification service sends.
type outbox struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (o *outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

var viewLink = regexp.MustCompile(`/tickets/view/([0-9a-f]{64})`)

// magicToken returns the token in the newest ticket-created email to addr.
func (o *outbox) magicToken(addr string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		msg := o.sent[i]
		if msg.Kind != notify.KindTicketCreated || msg.To != addr {
			continue
		}
		if m := viewLink.FindStringSubmatch(msg.HTML); m != nil {
			return m[1]
		}
	}
	return ""
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.NewStore()

	dispatcher := events.NewInMemoryDispatcher(logger)
	hub := realtime.NewHub(realtime.Options{SendBuffer: 16, Metrics: metrics})
	require.NoError(t, hub.Init(ctx))
	t.Cleanup(func() { _ = hub.Shutdown(context.Background()) })
	polls := realtime.NewPollManager(hub, 100*time.Millisecond, time.Minute, logger)

	magic := auth.NewMagicLinkManager(store.Users(), store.Tickets(), "http://desk.test", logger, auth.WithMetrics(metrics))
	authService := service.NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 10, BcryptCost: 4}, store.Users(), logger)
	_, err := authService.SeedAdmin(ctx, "Admin", adminEmail, adminPassword)
	require.NoError(t, err)

	tickets := service.NewTicketService(service.TicketDependencies{
		UserRepo:       store.Users(),
		TicketRepo:     store.Tickets(),
		CommentRepo:    store.Comments(),
		AttachmentRepo: store.Attachments(),
		MagicLinks:     magic,
		Files:          storage.NewLocalStore(t.TempDir(), 1024),
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	worker.StartRealtimeWorker(dispatcher, hub, logger)

	renderer, err := notify.NewRenderer("http://desk.test")
	require.NoError(t, err)
	mail := &outbox{}
	worker.StartNotificationWorker(service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		UserRepo:   store.Users(),
		Renderer:   renderer,
		Mailer:     mail,
		Logger:     logger,
		ExpiryDays: 3,
	}))

	validator := handlers.NewRequestValidator()
	app := NewApp(ServerConfig{Name: "helpdesk-test", MaxUploadBytes: 1024}, logger, metrics, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk", "1.2.3", map[string]handlers.Pinger{"postgres": &persistence.Postgres{}, "redis": nil}),
		Auth:           handlers.NewAuthHandler(authService, validator),
		Tickets:        handlers.NewTicketsHandler(tickets, validator),
		Magic:          handlers.NewMagicHandler(tickets, validator),
		Uploads:        handlers.NewUploadsHandler(tickets),
		Realtime:       handlers.NewRealtimeHandler(hub, polls, time.Second, "*", logger),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users()),
	})
	return &testServer{app: app, store: store, hub: hub, dispatcher: dispatcher, tickets: tickets, outbox: mail}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

type anonymousResult struct {
	TicketID  string  `json:"ticket_id"`
	MagicLink *string `json:"magic_link"`
}

func (s *testServer) submit(t *testing.T, email string) (ticketID, token string) {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/tickets/anonymous", "", map[string]any{
		"name":        "Grace Guest",
		"email":       email,
		"title":       "VPN keeps dropping",
		"description": "Disconnects every ten minutes",
		"category":    "NETWORK",
	})
	require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
	res := decode[anonymousResult](t, env.Data)
	require.Nil(t, res.MagicLink, "the link only goes out by email")
	require.NoError(t, s.dispatcher.Wait(context.Background()))
	return res.TicketID, s.outbox.magicToken(strings.ToLower(email))
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status)
	return decode[struct {
		Token string `json:"token"`
	}](t, env.Data).Token
}

func TestHealthVersionAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	var ready struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "ok", ready.Dependencies["postgres"])
	assert.Equal(t, "disabled", ready.Dependencies["redis"])

	resp, err = s.app.Test(httptest.NewRequest(http.MethodGet, "/version", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"version":"1.2.3"`)

	resp, err = s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "helpdesk_http_requests_total")
}

func TestUnknownRouteRendersJSONError(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, env = s.do(t, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
	assert.Equal(t, "UPGRADE_REQUIRED", env.Error.Code)
}

func TestAnonymousSubmissionAndMagicView(t *testing.T) {
	s := newTestServer(t)
	ticketID, token := s.submit(t, "grace@example.com")
	assert.Len(t, token, 64)

	status, env := s.do(t, http.MethodGet, "/api/tickets/magic/"+token, "", nil)
	require.Equal(t, http.StatusOK, status)
	view := decode[struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Priority  string `json:"priority"`
		CreatedBy struct {
			Name string `json:"name"`
			Role string `json:"role"`
		} `json:"created_by"`
		Comments []json.RawMessage `json:"comments"`
	}](t, env.Data)
	assert.Equal(t, ticketID, view.ID)
	assert.Equal(t, "OPEN", view.Status)
	assert.Equal(t, "MEDIUM", view.Priority)
	assert.Equal(t, "GUEST", view.CreatedBy.Role)
	assert.Empty(t, view.Comments)

	status, env = s.do(t, http.MethodPost, "/api/tickets/magic/"+token+"/comment", "", map[string]string{"content": "still broken"})
	require.Equal(t, http.StatusCreated, status)
	comment := decode[struct {
		Content    string `json:"content"`
		IsInternal bool   `json:"is_internal"`
	}](t, env.Data)
	assert.Equal(t, "still broken", comment.Content)
	assert.False(t, comment.IsInternal)
}

func TestAnonymousSubmissionWithRegisteredEmail(t *testing.T) {
	s := newTestServer(t)
	ticketID, token := s.submit(t, adminEmail)
	assert.Empty(t, token, "registered accounts get no magic link")

	admin, err := s.store.Users().GetByEmail(context.Background(), adminEmail)
	require.NoError(t, err)
	assert.Nil(t, admin.MagicToken)

	ticket, err := s.store.Tickets().GetByID(context.Background(), ticketID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, ticket.CreatedByID)
}

func TestMagicFailuresShareOneError(t *testing.T) {
	s := newTestServer(t)
	s.submit(t, "grace@example.com")

	for _, credential := range []string{"short", strings.Repeat("a", 64), "0123456789abcdef"} {
		status, env := s.do(t, http.MethodGet, "/api/tickets/magic/"+credential, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, credential)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_CREDENTIAL", env.Error.Code)
		assert.Equal(t, "invalid or expired token", env.Error.Message)
	}
}

func TestAnonymousValidation(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(t, http.MethodPost, "/api/tickets/anonymous", "", map[string]any{
		"name":        "G",
		"email":       "not-an-email",
		"title":       "VPN keeps dropping",
		"description": "Disconnects every ten minutes",
		"category":    "NETWORK",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Details, "email")
	assert.Contains(t, env.Error.Details, "name")
}

func TestSessionTicketFlow(t *testing.T) {
	s := newTestServer(t)
	ticketID, _ := s.submit(t, "grace@example.com")
	adminToken := s.login(t, adminEmail, adminPassword)

	status, env := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"name": "Una User", "email": "una@example.com", "password": "password123"})
	require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
	userToken := decode[struct {
		Token string `json:"token"`
	}](t, env.Data).Token

	status, _ = s.do(t, http.MethodGet, "/api/tickets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = s.do(t, http.MethodGet, "/api/tickets?status=open", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]json.RawMessage](t, env.Data), 1)

	status, env = s.do(t, http.MethodGet, "/api/tickets", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]json.RawMessage](t, env.Data))

	status, _ = s.do(t, http.MethodGet, "/api/tickets/"+ticketID, userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPatch, "/api/tickets/"+ticketID, userToken, map[string]string{"status": "CLOSED"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(t, http.MethodPatch, "/api/tickets/"+ticketID, adminToken, map[string]string{"status": "BOGUS"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	status, env = s.do(t, http.MethodPatch, "/api/tickets/"+ticketID, adminToken, map[string]string{"status": "RESOLVED"})
	require.Equal(t, http.StatusOK, status)
	updated := decode[struct {
		Status     string     `json:"status"`
		ResolvedAt *time.Time `json:"resolved_at"`
	}](t, env.Data)
	assert.Equal(t, "RESOLVED", updated.Status)
	assert.NotNil(t, updated.ResolvedAt)

	status, _ = s.do(t, http.MethodPost, "/api/tickets/"+ticketID+"/comments", adminToken, map[string]any{"content": "internal", "is_internal": true})
	require.Equal(t, http.StatusCreated, status)

	status, env = s.do(t, http.MethodGet, "/api/tickets/"+ticketID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	detail := decode[struct {
		Comments []json.RawMessage `json:"comments"`
	}](t, env.Data)
	assert.Len(t, detail.Comments, 1)

	status, env = s.do(t, http.MethodGet, "/api/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	stats := decode[struct {
		Total      int            `json:"total"`
		Unassigned *int           `json:"unassigned"`
		ByStatus   map[string]int `json:"by_status"`
	}](t, env.Data)
	assert.Equal(t, 1, stats.Total)
	require.NotNil(t, stats.Unassigned)
	assert.Equal(t, 1, stats.ByStatus["RESOLVED"])

	status, env = s.do(t, http.MethodGet, "/api/stats", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, decode[struct {
		Unassigned *int `json:"unassigned"`
	}](t, env.Data).Unassigned)

	status, _ = s.do(t, http.MethodDelete, "/api/tickets/"+ticketID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = s.do(t, http.MethodGet, "/api/tickets/"+ticketID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMagicLinkAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	ticketID, token := s.submit(t, "grace@example.com")
	adminToken := s.login(t, adminEmail, adminPassword)

	status, env := s.do(t, http.MethodPost, "/api/tickets/"+ticketID+"/magic-link", adminToken, nil)
	require.Equal(t, http.StatusCreated, status)
	link := decode[struct {
		MagicLink string `json:"magic_link"`
	}](t, env.Data).MagicLink
	fresh := link[strings.LastIndex(link, "/")+1:]
	assert.NotEqual(t, token, fresh)

	status, _ = s.do(t, http.MethodGet, "/api/tickets/magic/"+token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	ticket, err := s.store.Tickets().GetByID(context.Background(), ticketID)
	require.NoError(t, err)
	status, _ = s.do(t, http.MethodDelete, "/api/users/"+ticket.CreatedByID+"/magic-link", adminToken, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodGet, "/api/tickets/magic/"+fresh, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = s.do(t, http.MethodDelete, "/api/users/not-a-uuid/magic-link", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, env = s.do(t, http.MethodPatch, "/api/tickets/"+ticketID, adminToken, map[string]string{"assignee_id": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestAttachmentUploadAndDownload(t *testing.T) {
	s := newTestServer(t)
	ticketID, token := s.submit(t, "grace@example.com")
	adminToken := s.login(t, adminEmail, adminPassword)

	upload := func(content string) (int, envelope) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", "screen shot.png")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/tickets/"+ticketID+"/attachments", &buf)
		req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+adminToken)
		return s.send(t, req)
	}

	status, env := upload("png-bytes")
	require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
	att := decode[struct {
		FileName  string `json:"file_name"`
		SizeBytes int64  `json:"size_bytes"`
		URL       string `json:"url"`
	}](t, env.Data)
	assert.Equal(t, "screen shot.png", att.FileName)
	assert.Equal(t, int64(9), att.SizeBytes)
	require.True(t, strings.HasPrefix(att.URL, "/api/uploads/"+ticketID+"/"))

	status, env = upload(strings.Repeat("x", 1025))
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", env.Error.Code)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, att.URL+"?token="+token, nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "png-bytes", string(body))

	status, _ = s.do(t, http.MethodGet, att.URL, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	req := httptest.NewRequest(http.MethodGet, att.URL, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+adminToken)
	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDownloadDisposition(t *testing.T) {
	s := newTestServer(t)
	ticketID, token := s.submit(t, "grace@example.com")
	adminToken := s.login(t, adminEmail, adminPassword)

	upload := func(name, contentType, content string) string {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
		h.Set(fiber.HeaderContentType, contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/tickets/"+ticketID+"/attachments", &buf)
		req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+adminToken)
		status, env := s.send(t, req)
		require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
		return decode[struct {
			URL string `json:"url"`
		}](t, env.Data).URL
	}

	tests := []struct {
		name        string
		contentType string
		disposition string
	}{
		{"page.html", "text/html", "attachment"},
		{"logo.svg", "image/svg+xml", "attachment"},
		{"shot.png", "image/png", "inline"},
		{"notes.txt", "text/plain; charset=utf-8", "inline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := upload(tt.name, tt.contentType, "<b>x</b>")
			resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, url+"?token="+token, nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentDisposition), tt.disposition+";"), resp.Header.Get(fiber.HeaderContentDisposition))
			assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
		})
	}
}

func TestLongPollFallback(t *testing.T) {
	s := newTestServer(t)
	ticketID, token := s.submit(t, "grace@example.com")

	status, env := s.do(t, http.MethodPost, "/realtime/poll", "", nil)
	require.Equal(t, http.StatusCreated, status)
	sid := decode[struct {
		SID string `json:"sid"`
	}](t, env.Data).SID

	req := httptest.NewRequest(http.MethodPost, "/realtime/poll/"+sid, strings.NewReader(`{"event":"join-ticket","data":"`+ticketID+`"}`))
	status, _ = s.send(t, req)
	require.Equal(t, http.StatusAccepted, status)

	status, _ = s.do(t, http.MethodPost, "/api/tickets/magic/"+token+"/comment", "", map[string]string{"content": "any update?"})
	require.Equal(t, http.StatusCreated, status)

	status, env = s.do(t, http.MethodGet, "/realtime/poll/"+sid, "", nil)
	require.Equal(t, http.StatusOK, status)
	frames := decode[[]realtime.Frame](t, env.Data)
	require.Len(t, frames, 2)
	assert.Equal(t, realtime.FrameJoined, frames[0].Event)
	assert.Equal(t, "comment:added", frames[1].Event)
	assert.Contains(t, string(frames[1].Data), "any update?")

	status, env = s.do(t, http.MethodGet, "/realtime/poll/"+sid, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]realtime.Frame](t, env.Data))

	req = httptest.NewRequest(http.MethodPost, "/realtime/poll/"+sid, strings.NewReader(`{"event":"join-ticket"}`))
	status, _ = s.send(t, req)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodDelete, "/realtime/poll/"+sid, "", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = s.do(t, http.MethodGet, "/realtime/poll/"+sid, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}
