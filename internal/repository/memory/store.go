// Package memory provides process-local repository implementations. They back
// the service when no POSTGRES_DSN is configured and are used by tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Store holds every entity behind a single lock.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	users       map[string]domain.User
	tickets     map[string]domain.Ticket
	comments    map[string]domain.Comment
	attachments map[string]domain.Attachment
	seq         int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:         time.Now,
		users:       make(map[string]domain.User),
		tickets:     make(map[string]domain.Ticket),
		comments:    make(map[string]domain.Comment),
		attachments: make(map[string]domain.Attachment),
	}
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return (*userRepo)(s) }

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return (*ticketRepo)(s) }

// Comments returns the comment repository view.
func (s *Store) Comments() repository.CommentRepository { return (*commentRepo)(s) }

// Attachments returns the attachment repository view.
func (s *Store) Attachments() repository.AttachmentRepository { return (*attachmentRepo)(s) }

// stamp returns a strictly increasing timestamp so ordering by creation time is stable.
func (s *Store) stamp() time.Time {
	s.seq++
	return s.now().Add(time.Duration(s.seq) * time.Microsecond)
}

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return duplicateError("email")
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = s.stamp()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := cloneUser(*user)
	updated.MagicToken = existing.MagicToken
	updated.MagicTokenExp = existing.MagicTokenExp
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.stamp()
	s.users[user.ID] = updated
	user.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneUser(user)
	return &out, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userByEmailLocked(email)
}

func (s *Store) userByEmailLocked(email string) (*domain.User, error) {
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			out := cloneUser(user)
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *userRepo) ListActiveAdmins(_ context.Context) ([]domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.User
	for _, user := range s.users {
		if user.Role == domain.RoleAdmin && user.IsActive {
			result = append(result, cloneUser(user))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *userRepo) FindOrCreateGuest(_ context.Context, name, email string) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.userByEmailLocked(email)
	if err != nil {
		created := domain.User{
			ID:       uuid.NewString(),
			Name:     name,
			Email:    email,
			Role:     domain.RoleGuest,
			IsActive: true,
		}
		created.CreatedAt = s.stamp()
		created.UpdatedAt = created.CreatedAt
		s.users[created.ID] = created
		out := cloneUser(created)
		return &out, nil
	}
	if existing.Role != domain.RoleGuest && existing.Name != name {
		stored := s.users[existing.ID]
		stored.Name = name
		stored.UpdatedAt = s.stamp()
		s.users[existing.ID] = stored
		existing.Name = name
	}
	return existing, nil
}

func (r *userRepo) SetMagicToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	for id, other := range s.users {
		if id != userID && other.MagicToken != nil && *other.MagicToken == token {
			return duplicateError("magic_token")
		}
	}
	user.MagicToken = &token
	user.MagicTokenExp = &expiresAt
	s.users[userID] = user
	return nil
}

func (r *userRepo) ClearMagicToken(_ context.Context, userID string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.MagicToken = nil
	user.MagicTokenExp = nil
	s.users[userID] = user
	return nil
}

func (r *userRepo) GetByMagicToken(_ context.Context, token string) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.MagicToken != nil && *user.MagicToken == token {
			out := cloneUser(user)
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func cloneUser(u domain.User) domain.User {
	if u.MagicToken != nil {
		token := *u.MagicToken
		u.MagicToken = &token
	}
	if u.MagicTokenExp != nil {
		exp := *u.MagicTokenExp
		u.MagicTokenExp = &exp
	}
	return u
}

func duplicateError(field string) error {
	return apperrors.NewConflict("resource already exists", map[string]any{"field": field})
}
