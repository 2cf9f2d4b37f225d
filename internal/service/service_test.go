package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	store      *memory.Store
	magic      *auth.MagicLinkManager
	dispatcher events.Dispatcher
	tickets    *TicketService
	auth       *AuthService
	events     *recorder
	clock      time.Time
	admin      *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), events: &recorder{}, clock: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	f.dispatcher = events.NewInMemoryDispatcher(zap.NewNop())
	for _, et := range events.AllTypes() {
		f.dispatcher.Subscribe(et, f.events.handle)
	}
	f.magic = auth.NewMagicLinkManager(f.store.Users(), f.store.Tickets(), "http://desk.test", zap.NewNop(),
		auth.WithClock(func() time.Time { return f.clock }))
	f.tickets = NewTicketService(TicketDependencies{
		UserRepo:       f.store.Users(),
		TicketRepo:     f.store.Tickets(),
		CommentRepo:    f.store.Comments(),
		AttachmentRepo: f.store.Attachments(),
		MagicLinks:     f.magic,
		Files:          storage.NewLocalStore(t.TempDir(), 64),
		Dispatcher:     f.dispatcher,
	})
	f.auth = NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5, BcryptCost: 4}, f.store.Users(), nil)

	admin, err := f.auth.SeedAdmin(context.Background(), "Admin", "admin@desk.test", "secret-password")
	require.NoError(t, err)
	f.admin = admin
	return f
}

func (f *fixture) adminActor() domain.Actor { return domain.ActorFromUser(f.admin) }

func (f *fixture) submit(t *testing.T, email string) *AnonymousTicketResult {
	t.Helper()
	res, err := f.tickets.CreateAnonymous(context.Background(), AnonymousTicketInput{
		Name:  "Guest User",
		Email: email,
		TicketCreateInput: TicketCreateInput{
			Title:       "Printer is on fire",
			Description: "Smoke everywhere near the printer",
			Category:    domain.TicketCategoryHardware,
		},
	})
	require.NoError(t, err)
	return res
}

func tokenOf(link string) string {
	return link[strings.LastIndex(link, "/")+1:]
}

func TestCreateAnonymousIssuesLinkAndPublishes(t *testing.T) {
	f := newFixture(t)
	res := f.submit(t, " Guest@Example.com ")

	assert.Equal(t, domain.TicketPriorityMedium, res.Ticket.Priority)
	assert.Equal(t, domain.TicketStatusOpen, res.Ticket.Status)
	assert.True(t, strings.HasPrefix(res.MagicLink, "http://desk.test/tickets/view/"))
	assert.Len(t, tokenOf(res.MagicLink), 64)
	assert.Equal(t, f.clock.Add(auth.DefaultMagicLinkTTL), res.ExpiresAt)

	guest, err := f.store.Users().GetByEmail(context.Background(), "guest@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGuest, guest.Role)
	assert.Equal(t, guest.ID, res.Ticket.CreatedByID)

	event := f.events.last()
	assert.Equal(t, events.EventTicketCreated, event.Type)
	assert.Equal(t, res.MagicLink, event.MagicLink)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, guest.ID, event.Actor.UserID)
}

func TestCreateAnonymousSkipsLinkForRegisteredAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing, err := f.magic.Issue(ctx, f.admin.ID)
	require.NoError(t, err)

	res := f.submit(t, "admin@desk.test")
	assert.Empty(t, res.MagicLink)
	assert.True(t, res.ExpiresAt.IsZero())
	assert.Equal(t, f.admin.ID, res.Ticket.CreatedByID)
	assert.Empty(t, f.events.last().MagicLink)

	userID, err := f.magic.Validate(ctx, existing.Token)
	require.NoError(t, err, "the account's own link is left alone")
	assert.Equal(t, f.admin.ID, userID)
}

func TestCreateAnonymousValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	valid := TicketCreateInput{Title: "Valid title", Description: "long enough text", Category: domain.TicketCategoryOther}

	cases := map[string]AnonymousTicketInput{
		"short name":   {Name: "A", Email: "a@x.io", TicketCreateInput: valid},
		"no email":     {Name: "Ann", TicketCreateInput: valid},
		"short title":  {Name: "Ann", Email: "a@x.io", TicketCreateInput: TicketCreateInput{Title: "Hi", Description: valid.Description, Category: valid.Category}},
		"short body":   {Name: "Ann", Email: "a@x.io", TicketCreateInput: TicketCreateInput{Title: valid.Title, Description: "short", Category: valid.Category}},
		"bad category": {Name: "Ann", Email: "a@x.io", TicketCreateInput: TicketCreateInput{Title: valid.Title, Description: valid.Description, Category: "FOOD"}},
		"bad priority": {Name: "Ann", Email: "a@x.io", TicketCreateInput: TicketCreateInput{Title: valid.Title, Description: valid.Description, Category: valid.Category, Priority: "URGENT"}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.tickets.CreateAnonymous(ctx, input)
			assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"), "got %v", err)
		})
	}
	assert.Empty(t, f.events.types())
}

func TestViewByMagicHidesInternalComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.submit(t, "guest@example.com")

	_, err := f.tickets.AddComment(ctx, f.adminActor(), res.Ticket.ID, "looking into it", false)
	require.NoError(t, err)
	_, err = f.tickets.AddComment(ctx, f.adminActor(), res.Ticket.ID, "guest seems confused", true)
	require.NoError(t, err)

	view, err := f.tickets.ViewByMagic(ctx, tokenOf(res.MagicLink))
	require.NoError(t, err)
	assert.Equal(t, res.Ticket.ID, view.Ticket.ID)
	require.Len(t, view.Comments, 1)
	assert.Equal(t, "looking into it", view.Comments[0].Comment.Content)
	require.NotNil(t, view.CreatedBy)
	assert.Equal(t, "Guest User", view.CreatedBy.Name)

	full, err := f.tickets.Get(ctx, f.adminActor(), res.Ticket.ID)
	require.NoError(t, err)
	assert.Len(t, full.Comments, 2)
}

func TestViewByMagicUsesLatestTicketAndShortID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.submit(t, "guest@example.com")
	second := f.submit(t, "guest@example.com")

	_, err := f.tickets.ViewByMagic(ctx, tokenOf(first.MagicLink))
	assert.True(t, apperrors.IsCode(err, "INVALID_CREDENTIAL"), "reissue replaced the first token")

	view, err := f.tickets.ViewByMagic(ctx, tokenOf(second.MagicLink))
	require.NoError(t, err)
	assert.Equal(t, second.Ticket.ID, view.Ticket.ID)

	short := strings.ReplaceAll(first.Ticket.ID, "-", "")[:16]
	view, err = f.tickets.ViewByMagic(ctx, short)
	require.NoError(t, err)
	assert.Equal(t, first.Ticket.ID, view.Ticket.ID)
}

func TestViewByMagicExpiry(t *testing.T) {
	f := newFixture(t)
	res := f.submit(t, "guest@example.com")

	f.clock = res.ExpiresAt.Add(-time.Second)
	_, err := f.tickets.ViewByMagic(context.Background(), tokenOf(res.MagicLink))
	require.NoError(t, err)

	f.clock = res.ExpiresAt
	_, err = f.tickets.ViewByMagic(context.Background(), tokenOf(res.MagicLink))
	assert.True(t, apperrors.IsCode(err, "INVALID_CREDENTIAL"))
}

func TestCommentByMagic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.submit(t, "guest@example.com")
	other := f.submit(t, "other@example.com")
	token := tokenOf(mine.MagicLink)

	view, err := f.tickets.CommentByMagic(ctx, token, "", "thanks for the help")
	require.NoError(t, err)
	assert.False(t, view.Comment.IsInternal)
	assert.Equal(t, mine.Ticket.CreatedByID, view.Comment.UserID)

	event := f.events.last()
	assert.Equal(t, events.EventCommentAdded, event.Type)
	assert.True(t, event.Actor.ViaMagicLink)
	assert.Equal(t, mine.Ticket.ID, event.TicketID)

	_, err = f.tickets.CommentByMagic(ctx, token, other.Ticket.ID, "sneaky")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = f.tickets.CommentByMagic(ctx, token, "", "   ")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.tickets.CommentByMagic(ctx, "nope", "", "hello")
	assert.True(t, apperrors.IsCode(err, "INVALID_CREDENTIAL"))
}

func TestUpdatePublishesOneEventByPriority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.submit(t, "guest@example.com")
	actor := f.adminActor()

	status := domain.TicketStatusResolved
	assignee := f.admin.ID
	title := "Printer was on fire"

	before := len(f.events.types())
	updated, err := f.tickets.Update(ctx, actor, res.Ticket.ID, TicketUpdateInput{Status: &status, AssigneeID: &assignee, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	require.NotNil(t, updated.ResolvedAt)
	assert.Len(t, f.events.types(), before+1)
	assert.Equal(t, events.EventTicketAssigned, f.events.last().Type)

	open := domain.TicketStatusOpen
	updated, err = f.tickets.Update(ctx, actor, res.Ticket.ID, TicketUpdateInput{Status: &open})
	require.NoError(t, err)
	assert.Nil(t, updated.ResolvedAt)
	last := f.events.last()
	assert.Equal(t, events.EventTicketStatusChanged, last.Type)
	assert.Equal(t, domain.TicketStatusResolved, last.PreviousStatus)

	priority := domain.TicketPriorityCritical
	_, err = f.tickets.Update(ctx, actor, res.Ticket.ID, TicketUpdateInput{Priority: &priority})
	require.NoError(t, err)
	assert.Equal(t, events.EventTicketUpdated, f.events.last().Type)

	count := len(f.events.types())
	_, err = f.tickets.Update(ctx, actor, res.Ticket.ID, TicketUpdateInput{Priority: &priority})
	require.NoError(t, err)
	assert.Len(t, f.events.types(), count, "no-op updates publish nothing")
}

func TestUpdateRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.submit(t, "guest@example.com")
	guest, err := f.store.Users().GetByID(ctx, res.Ticket.CreatedByID)
	require.NoError(t, err)

	status := domain.TicketStatusClosed
	_, err = f.tickets.Update(ctx, domain.ActorFromUser(guest), res.Ticket.ID, TicketUpdateInput{Status: &status})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	notAdmin := guest.ID
	_, err = f.tickets.Update(ctx, f.adminActor(), res.Ticket.ID, TicketUpdateInput{AssigneeID: &notAdmin})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.tickets.Update(ctx, f.adminActor(), "missing", TicketUpdateInput{Status: &status})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	assignee := f.admin.ID
	_, err = f.tickets.Update(ctx, f.adminActor(), res.Ticket.ID, TicketUpdateInput{AssigneeID: &assignee})
	require.NoError(t, err)
	empty := ""
	updated, err := f.tickets.Update(ctx, f.adminActor(), res.Ticket.ID, TicketUpdateInput{AssigneeID: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedToID)
	assert.Equal(t, events.EventTicketAssigned, f.events.last().Type)
}

func TestListAndAccessScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, err := f.auth.Register(ctx, "Member", "member@example.com", "password123")
	require.NoError(t, err)
	member := domain.ActorFromUser(session.User)

	own, err := f.tickets.Create(ctx, member, TicketCreateInput{Title: "My laptop", Description: "battery drains fast", Category: domain.TicketCategoryHardware, Priority: domain.TicketPriorityHigh})
	require.NoError(t, err)
	foreign := f.submit(t, "guest@example.com")

	list, err := f.tickets.List(ctx, member, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, own.ID, list[0].ID)

	all, err := f.tickets.List(ctx, f.adminActor(), TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.tickets.Get(ctx, member, foreign.Ticket.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	view, err := f.tickets.AddComment(ctx, member, own.ID, "tried rebooting", true)
	require.NoError(t, err)
	assert.False(t, view.Comment.IsInternal, "only admins post internal notes")

	stats, err := f.tickets.Stats(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	adminStats, err := f.tickets.Stats(ctx, f.adminActor())
	require.NoError(t, err)
	assert.Equal(t, 2, adminStats.Total)
}

func TestAttachmentsAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.submit(t, "guest@example.com")
	token := tokenOf(res.MagicLink)

	view, err := f.tickets.AddAttachment(ctx, f.adminActor(), res.Ticket.ID, UploadInput{FileName: "log file.txt", Content: strings.NewReader("hello")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), view.Attachment.FileSize)
	assert.Equal(t, "application/octet-stream", view.Attachment.MimeType)
	assert.Equal(t, events.EventAttachmentAdded, f.events.last().Type)

	_, err = f.tickets.AddAttachment(ctx, f.adminActor(), res.Ticket.ID, UploadInput{FileName: "big.bin", Content: strings.NewReader(strings.Repeat("x", 65))})
	assert.True(t, apperrors.IsCode(err, "PAYLOAD_TOO_LARGE"))

	name := view.Attachment.FilePath[strings.LastIndex(view.Attachment.FilePath, "/")+1:]
	_, file, err := f.tickets.OpenAttachment(ctx, AttachmentViewer{MagicToken: token}, res.Ticket.ID, name)
	require.NoError(t, err)
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "hello", string(body))

	_, _, err = f.tickets.OpenAttachment(ctx, AttachmentViewer{}, res.Ticket.ID, name)
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
	_, _, err = f.tickets.OpenAttachment(ctx, AttachmentViewer{MagicToken: "bogus"}, res.Ticket.ID, name)
	assert.True(t, apperrors.IsCode(err, "INVALID_CREDENTIAL"))
	_, _, err = f.tickets.OpenAttachment(ctx, AttachmentViewer{}, res.Ticket.ID, "missing.txt")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"), "anonymous callers cannot probe file names")
	_, _, err = f.tickets.OpenAttachment(ctx, AttachmentViewer{MagicToken: token}, res.Ticket.ID, "missing.txt")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	require.NoError(t, f.tickets.Delete(ctx, f.adminActor(), res.Ticket.ID))
	last := f.events.last()
	assert.Equal(t, events.EventTicketDeleted, last.Type)
	assert.Equal(t, res.Ticket.ID, last.TicketID)

	_, _, err = f.tickets.OpenAttachment(ctx, AttachmentViewer{MagicToken: token}, res.Ticket.ID, name)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

type brokenAttachments struct {
	repository.AttachmentRepository
}

func (brokenAttachments) GetByPath(context.Context, string, string) (*domain.Attachment, error) {
	return nil, errors.New("connection reset")
}

func TestOpenAttachmentSurfacesStoreErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.submit(t, "guest@example.com")

	tickets := NewTicketService(TicketDependencies{
		UserRepo:       f.store.Users(),
		TicketRepo:     f.store.Tickets(),
		CommentRepo:    f.store.Comments(),
		AttachmentRepo: brokenAttachments{f.store.Attachments()},
		MagicLinks:     f.magic,
		Files:          storage.NewLocalStore(t.TempDir(), 64),
	})
	_, _, err := tickets.OpenAttachment(ctx, AttachmentViewer{MagicToken: tokenOf(res.MagicLink)}, res.Ticket.ID, "a.txt")
	require.Error(t, err)
	assert.False(t, apperrors.IsCode(err, "NOT_FOUND"))
	assert.Equal(t, "INTERNAL_ERROR", apperrors.ToDomainError(err).Code)
}

func TestReissueAndInvalidateMagicLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.submit(t, "guest@example.com")

	link, err := f.tickets.ReissueMagicLink(ctx, f.adminActor(), res.Ticket.ID)
	require.NoError(t, err)
	assert.NotEqual(t, tokenOf(res.MagicLink), link.Token)

	_, err = f.tickets.ViewByMagic(ctx, link.Token)
	require.NoError(t, err)

	guest := domain.Actor{UserID: res.Ticket.CreatedByID, Role: domain.RoleGuest}
	assert.True(t, apperrors.IsCode(f.tickets.InvalidateMagicLink(ctx, guest, res.Ticket.CreatedByID), "FORBIDDEN"))
	require.NoError(t, f.tickets.InvalidateMagicLink(ctx, f.adminActor(), res.Ticket.CreatedByID))

	_, err = f.tickets.ViewByMagic(ctx, link.Token)
	assert.True(t, apperrors.IsCode(err, "INVALID_CREDENTIAL"))
	assert.True(t, apperrors.IsCode(f.tickets.InvalidateMagicLink(ctx, f.adminActor(), "missing"), "NOT_FOUND"))
}

func TestAuthRegisterLoginAndSeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.submit(t, "guest@example.com")
	_, err := f.auth.Login(ctx, "guest@example.com", "")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"), "guests cannot log in")

	session, err := f.auth.Register(ctx, "Guest Person", "guest@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, res.Ticket.CreatedByID, session.User.ID, "guest is upgraded in place")
	assert.Equal(t, domain.RoleUser, session.User.Role)
	assert.NotEmpty(t, session.Token)

	_, err = f.auth.Register(ctx, "Again", "guest@example.com", "password123")
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
	_, err = f.auth.Register(ctx, "Short", "short@example.com", "pw")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	login, err := f.auth.Login(ctx, "GUEST@example.com", "password123")
	require.NoError(t, err)
	claims, err := f.auth.TokenManager().ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.Subject)

	_, err = f.auth.Login(ctx, "guest@example.com", "wrong-password")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))

	again, err := f.auth.SeedAdmin(ctx, "Admin", "admin@desk.test", "rotated-password")
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, again.ID)
	_, err = f.auth.Login(ctx, "admin@desk.test", "rotated-password")
	require.NoError(t, err)

	none, err := f.auth.SeedAdmin(ctx, "Admin", "", "")
	require.NoError(t, err)
	assert.Nil(t, none)
}

type captureMailer struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (m *captureMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) byKind(kind string) []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notify.Message
	for _, msg := range m.sent {
		if msg.Kind == kind {
			out = append(out, msg)
		}
	}
	return out
}

func TestNotificationRecipients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	renderer, err := notify.NewRenderer("http://desk.test")
	require.NoError(t, err)
	mailer := &captureMailer{}
	NewNotificationService(NotificationDependencies{
		Dispatcher: f.dispatcher,
		UserRepo:   f.store.Users(),
		Renderer:   renderer,
		Mailer:     mailer,
		ExpiryDays: 3,
	}).RegisterHandlers()

	res := f.submit(t, "guest@example.com")
	require.NoError(t, f.dispatcher.Wait(ctx))

	created := mailer.byKind(notify.KindTicketCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "guest@example.com", created[0].To)
	assert.Contains(t, created[0].HTML, res.MagicLink)
	adminMail := mailer.byKind(notify.KindAdminNew)
	require.Len(t, adminMail, 1)
	assert.Equal(t, "admin@desk.test", adminMail[0].To)

	_, err = f.tickets.AddComment(ctx, f.adminActor(), res.Ticket.ID, "internal note", true)
	require.NoError(t, err)
	_, err = f.tickets.AddComment(ctx, f.adminActor(), res.Ticket.ID, "public reply", false)
	require.NoError(t, err)
	_, err = f.tickets.CommentByMagic(ctx, tokenOf(res.MagicLink), "", "guest reply")
	require.NoError(t, err)
	require.NoError(t, f.dispatcher.Wait(ctx))

	comments := mailer.byKind(notify.KindComment)
	require.Len(t, comments, 1, "internal notes skip the guest and the actor is never notified")
	assert.Equal(t, "guest@example.com", comments[0].To)
	assert.Contains(t, comments[0].HTML, "public reply")

	assignee := f.admin.ID
	_, err = f.tickets.Update(ctx, f.adminActor(), res.Ticket.ID, TicketUpdateInput{AssigneeID: &assignee})
	require.NoError(t, err)
	_, err = f.tickets.CommentByMagic(ctx, tokenOf(res.MagicLink), "", "second guest reply")
	require.NoError(t, err)
	status := domain.TicketStatusInProgress
	_, err = f.tickets.Update(ctx, f.adminActor(), res.Ticket.ID, TicketUpdateInput{Status: &status})
	require.NoError(t, err)
	require.NoError(t, f.dispatcher.Wait(ctx))

	assert.Empty(t, mailer.byKind(notify.KindAssigned), "self-assignment is not mailed")
	comments = mailer.byKind(notify.KindComment)
	require.Len(t, comments, 2)
	assert.Equal(t, "admin@desk.test", comments[1].To)
	statusMail := mailer.byKind(notify.KindStatusChanged)
	require.Len(t, statusMail, 1)
	assert.Equal(t, "guest@example.com", statusMail[0].To)
	assert.Contains(t, statusMail[0].HTML, "IN_PROGRESS")
}
