package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const (
	// DefaultMagicLinkTTL is how long an issued token stays usable.
	DefaultMagicLinkTTL = 72 * time.Hour

	tokenBytes = 32

	// ShortIDMinLen and ShortIDMaxLen bound inputs treated as ticket id
	// prefixes. Anything outside the range is validated as a full token.
	ShortIDMinLen = 12
	ShortIDMaxLen = 63
)

// TokenStore persists the single magic token held by each user.
type TokenStore interface {
	SetMagicToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	ClearMagicToken(ctx context.Context, userID string) error
	GetByMagicToken(ctx context.Context, token string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// TicketPrefixFinder lists tickets whose normalized id starts with a prefix, newest first.
type TicketPrefixFinder interface {
	ListByIDPrefix(ctx context.Context, normalizedPrefix string) ([]domain.Ticket, error)
}

// IssuedLink is the result of minting a token.
type IssuedLink struct {
	URL       string
	Token     string
	ExpiresAt time.Time
}

// Access is what a credential resolves to. TicketID is only set on the short-id path.
type Access struct {
	UserID   string
	TicketID string
}

// MagicLinkManager issues, validates and invalidates magic tokens and
// resolves admin short ids.
type MagicLinkManager struct {
	store   TokenStore
	tickets TicketPrefixFinder
	baseURL string
	ttl     time.Duration
	now     func() time.Time
	random  io.Reader
	metrics *observability.Metrics
	logger  *zap.Logger
}

// MagicLinkOption customises a MagicLinkManager.
type MagicLinkOption func(*MagicLinkManager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MagicLinkOption {
	return func(m *MagicLinkManager) { m.now = now }
}

// WithRandom replaces crypto/rand as the entropy source.
func WithRandom(r io.Reader) MagicLinkOption {
	return func(m *MagicLinkManager) { m.random = r }
}

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) MagicLinkOption {
	return func(m *MagicLinkManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithMetrics records resolution results.
func WithMetrics(metrics *observability.Metrics) MagicLinkOption {
	return func(m *MagicLinkManager) { m.metrics = metrics }
}

// NewMagicLinkManager builds a manager. baseURL is the public origin used in links.
func NewMagicLinkManager(store TokenStore, tickets TicketPrefixFinder, baseURL string, logger *zap.Logger, opts ...MagicLinkOption) *MagicLinkManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MagicLinkManager{
		store:   store,
		tickets: tickets,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     DefaultMagicLinkTTL,
		now:     time.Now,
		random:  rand.Reader,
		logger:  logger.Named("magiclink"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// URLFor renders the public view link for a token.
func (m *MagicLinkManager) URLFor(token string) string {
	return m.baseURL + "/tickets/view/" + token
}

// Issue mints a fresh token for userID, replacing any previous one.
func (m *MagicLinkManager) Issue(ctx context.Context, userID string) (IssuedLink, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(m.random, buf); err != nil {
		return IssuedLink{}, fmt.Errorf("generate magic token: %w", err)
	}
	token := hex.EncodeToString(buf)
	expiresAt := m.now().Add(m.ttl)

	if err := m.store.SetMagicToken(ctx, userID, token, expiresAt); err != nil {
		return IssuedLink{}, fmt.Errorf("store magic token: %w", err)
	}

	m.logger.Info("magic link issued", zap.String("user_id", userID), zap.Time("expires_at", expiresAt))
	return IssuedLink{URL: m.URLFor(token), Token: token, ExpiresAt: expiresAt}, nil
}

// Validate returns the user owning token. Empty, unknown and expired tokens
// all yield the same INVALID_CREDENTIAL error. Validation never consumes the token.
func (m *MagicLinkManager) Validate(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		m.metrics.RecordMagicLink("token", "invalid")
		return "", apperrors.NewInvalidCredential()
	}

	user, err := m.store.GetByMagicToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			m.metrics.RecordMagicLink("token", "invalid")
			return "", apperrors.NewInvalidCredential()
		}
		m.metrics.RecordMagicLink("token", "error")
		m.logger.Error("magic token lookup failed", zap.Error(err))
		return "", fmt.Errorf("lookup magic token: %w", err)
	}

	if !user.HasLiveMagicToken(m.now()) {
		m.metrics.RecordMagicLink("token", "expired")
		m.logger.Debug("magic token expired", zap.String("user_id", user.ID))
		return "", apperrors.NewInvalidCredential()
	}

	m.metrics.RecordMagicLink("token", "ok")
	return user.ID, nil
}

// Invalidate clears the user's token and expiry.
func (m *MagicLinkManager) Invalidate(ctx context.Context, userID string) error {
	if err := m.store.ClearMagicToken(ctx, userID); err != nil {
		return fmt.Errorf("clear magic token: %w", err)
	}
	m.logger.Info("magic link invalidated", zap.String("user_id", userID))
	return nil
}

// IsShortID reports whether input is routed to short-id resolution. The
// bounds count characters, not bytes.
func IsShortID(input string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(input))
	return n >= ShortIDMinLen && n <= ShortIDMaxLen
}

// ResolveShortID finds the ticket whose id starts with input and whose
// creator holds a live token. An exact id match wins over a prefix match;
// otherwise the newest match wins.
func (m *MagicLinkManager) ResolveShortID(ctx context.Context, input string) (Access, error) {
	trimmed := strings.TrimSpace(input)
	prefix := domain.NormalizeTicketID(trimmed)
	if !IsShortID(trimmed) || prefix == "" {
		m.metrics.RecordMagicLink("short_id", "invalid")
		return Access{}, apperrors.NewInvalidCredential()
	}

	candidates, err := m.tickets.ListByIDPrefix(ctx, prefix)
	if err != nil {
		m.metrics.RecordMagicLink("short_id", "error")
		return Access{}, fmt.Errorf("list tickets by prefix: %w", err)
	}

	now := m.now()
	live := make(map[string]bool)
	var chosen *domain.Ticket
	for i := range candidates {
		ticket := &candidates[i]
		if !strings.HasPrefix(domain.NormalizeTicketID(ticket.ID), prefix) {
			continue
		}

		ok, seen := live[ticket.CreatedByID]
		if !seen {
			creator, err := m.store.GetByID(ctx, ticket.CreatedByID)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				ok = false
			case err != nil:
				m.metrics.RecordMagicLink("short_id", "error")
				return Access{}, fmt.Errorf("load ticket creator: %w", err)
			default:
				ok = creator.HasLiveMagicToken(now)
			}
			live[ticket.CreatedByID] = ok
		}
		if !ok {
			continue
		}

		if domain.NormalizeTicketID(ticket.ID) == prefix {
			chosen = ticket
			break
		}
		if chosen == nil {
			chosen = ticket
		}
	}

	if chosen == nil {
		m.metrics.RecordMagicLink("short_id", "invalid")
		return Access{}, apperrors.NewInvalidCredential()
	}

	m.metrics.RecordMagicLink("short_id", "ok")
	return Access{UserID: chosen.CreatedByID, TicketID: chosen.ID}, nil
}

// Resolve routes input by length: 12 to 63 characters is a short id,
// everything else is validated as a full token.
func (m *MagicLinkManager) Resolve(ctx context.Context, input string) (Access, error) {
	if IsShortID(input) {
		return m.ResolveShortID(ctx, input)
	}
	userID, err := m.Validate(ctx, input)
	if err != nil {
		return Access{}, err
	}
	return Access{UserID: userID}, nil
}
