package worker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
)

type published struct {
	room    string
	event   string
	payload any
}

type fakeHub struct {
	mu  sync.Mutex
	out []published
}

func (h *fakeHub) PublishToRoom(ticketID, event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.out = append(h.out, published{room: ticketID, event: event, payload: payload})
}

func (h *fakeHub) PublishToAll(event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.out = append(h.out, published{event: event, payload: payload})
}

func TestRealtimeWorkerRoutesEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	hub := &fakeHub{}
	StartRealtimeWorker(dispatcher, hub, nil)
	ctx := context.Background()

	ticket := &domain.Ticket{ID: "t1", Title: "Broken", Status: domain.TicketStatusOpen}
	comment := &domain.CommentView{Comment: &domain.Comment{ID: "c1", TicketID: "t1", Content: "hi"}, Author: &domain.User{ID: "u1", Name: "Ann"}}

	dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated, TicketID: "t1", Ticket: ticket})
	dispatcher.Publish(ctx, events.Event{Type: events.EventTicketStatusChanged, TicketID: "t1", Ticket: ticket})
	dispatcher.Publish(ctx, events.Event{Type: events.EventCommentAdded, TicketID: "t1", Comment: comment})
	dispatcher.Publish(ctx, events.Event{Type: events.EventTicketDeleted, TicketID: "t1"})
	dispatcher.Publish(ctx, events.Event{Type: events.EventTicketUpdated, TicketID: "t1"})

	require.Len(t, hub.out, 4, "events without a body are skipped")

	assert.Equal(t, "", hub.out[0].room)
	assert.Equal(t, "ticket:created", hub.out[0].event)
	assert.Equal(t, "t1", hub.out[0].payload.(dto.TicketResponse).ID)

	assert.Equal(t, "t1", hub.out[1].room)
	assert.Equal(t, "ticket:status-changed", hub.out[1].event)

	assert.Equal(t, "t1", hub.out[2].room)
	got := hub.out[2].payload.(dto.CommentResponse)
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, "Ann", got.Author.Name)

	assert.Equal(t, "", hub.out[3].room)
	assert.Equal(t, dto.DeletedResponse{ID: "t1"}, hub.out[3].payload)
}

func TestStartWorkersToleratesNil(t *testing.T) {
	StartNotificationWorker(nil)
	StartRealtimeWorker(nil, &fakeHub{}, nil)
	StartRealtimeWorker(events.NewInMemoryDispatcher(nil), nil, nil)
}
