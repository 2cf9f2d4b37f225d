package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type ticketRepo Store

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	ticket.CreatedAt = s.stamp()
	ticket.UpdatedAt = ticket.CreatedAt
	s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := cloneTicket(*ticket)
	updated.CreatedByID = existing.CreatedByID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.stamp()
	s.tickets[ticket.ID] = updated
	ticket.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *ticketRepo) Delete(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.tickets, id)
	for cid, comment := range s.comments {
		if comment.TicketID == id {
			delete(s.comments, cid)
		}
	}
	for aid, attachment := range s.attachments {
		if attachment.TicketID == id {
			delete(s.attachments, aid)
		}
	}
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r *ticketRepo) LatestByCreator(_ context.Context, userID string) (*domain.Ticket, error) {
	matches := r.collect(func(t domain.Ticket) bool { return t.CreatedByID == userID })
	if len(matches) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &matches[0], nil
}

func (r *ticketRepo) ListByIDPrefix(_ context.Context, normalizedPrefix string) ([]domain.Ticket, error) {
	return r.collect(func(t domain.Ticket) bool {
		return strings.HasPrefix(domain.NormalizeTicketID(t.ID), normalizedPrefix)
	}), nil
}

func (r *ticketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	matches := r.collect(func(t domain.Ticket) bool {
		if filter.CreatedByID != nil && t.CreatedByID != *filter.CreatedByID {
			return false
		}
		if filter.AssignedToID != nil && (t.AssignedToID == nil || *t.AssignedToID != *filter.AssignedToID) {
			return false
		}
		if filter.Unassigned && t.AssignedToID != nil {
			return false
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			return false
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, t.Priority) {
			return false
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if term != "" && !strings.Contains(strings.ToLower(t.Title), term) && !strings.Contains(strings.ToLower(t.Description), term) {
				return false
			}
		}
		return true
	})

	limit, offset := filter.Limit, filter.Offset
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matches) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[offset:end], nil
}

func (r *ticketRepo) Stats(_ context.Context, createdByID *string) (*repository.TicketStats, error) {
	stats := repository.NewTicketStats()
	for _, t := range r.collect(func(t domain.Ticket) bool {
		return createdByID == nil || t.CreatedByID == *createdByID
	}) {
		stats.Add(t.Status, t.Priority, t.AssignedToID != nil, 1)
	}
	return stats, nil
}

// collect returns matching tickets newest first.
func (r *ticketRepo) collect(match func(domain.Ticket) bool) []domain.Ticket {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range s.tickets {
		if match(ticket) {
			result = append(result, cloneTicket(ticket))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, item := range list {
		if item == p {
			return true
		}
	}
	return false
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.AssignedToID != nil {
		id := *t.AssignedToID
		t.AssignedToID = &id
	}
	if t.ResolvedAt != nil {
		at := *t.ResolvedAt
		t.ResolvedAt = &at
	}
	return t
}

type commentRepo Store

func (r *commentRepo) Create(_ context.Context, comment *domain.Comment) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[comment.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = s.stamp()
	s.comments[comment.ID] = *comment
	return nil
}

func (r *commentRepo) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Comment
	for _, comment := range s.comments {
		if comment.TicketID != ticketID || (comment.IsInternal && !includeInternal) {
			continue
		}
		result = append(result, comment)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type attachmentRepo Store

func (r *attachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[attachment.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	if attachment.ID == "" {
		attachment.ID = uuid.NewString()
	}
	attachment.CreatedAt = s.stamp()
	s.attachments[attachment.ID] = *attachment
	return nil
}

func (r *attachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Attachment
	for _, attachment := range s.attachments {
		if attachment.TicketID == ticketID {
			result = append(result, attachment)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *attachmentRepo) GetByPath(_ context.Context, ticketID, filePath string) (*domain.Attachment, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, attachment := range s.attachments {
		if attachment.TicketID == ticketID && attachment.FilePath == filePath {
			out := attachment
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}
