package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/observability"
)

// ErrHubClosed is returned when registering on a hub that is not running.
var ErrHubClosed = errors.New("realtime: hub not running")

// ErrUnknownConnection is returned when a connection id is not registered.
var ErrUnknownConnection = errors.New("realtime: unknown connection")

// Hub is the process-wide room router. Every method is safe for concurrent use.
type Hub interface {
	Init(ctx context.Context) error
	Shutdown(ctx context.Context) error

	Register() (*Client, error)
	Unregister(connID string)

	// Join adds the connection to the ticket's room. Rejoining is a no-op.
	Join(connID, ticketID string) error
	// Leave removes the connection from the room. Non-members are ignored.
	Leave(connID, ticketID string)

	PublishToRoom(ticketID, event string, payload any)
	PublishToAll(event string, payload any)

	// HandleFrame applies a client frame for connID and enqueues the acknowledgement.
	HandleFrame(connID string, raw []byte) error
}

// Options tunes a RoomHub.
type Options struct {
	SendBuffer int
	Relay      Relay
	// RelayBuffer bounds frames waiting for the relay; overflow is dropped.
	RelayBuffer int
	// RelayTimeout caps one relay publish.
	RelayTimeout time.Duration
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// RoomHub is the in-memory Hub implementation.
type RoomHub struct {
	mu      sync.RWMutex
	running bool
	clients map[string]*Client
	rooms   map[string]map[string]*Client

	origin     string
	sendBuffer int
	relay      Relay
	relayOut   chan RelayMessage
	relayWait  time.Duration
	metrics    *observability.Metrics
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub builds a stopped hub; call Init before registering connections.
func NewHub(opts Options) *RoomHub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RelayBuffer <= 0 {
		opts.RelayBuffer = 256
	}
	if opts.RelayTimeout <= 0 {
		opts.RelayTimeout = 2 * time.Second
	}
	h := &RoomHub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		origin:     uuid.NewString(),
		sendBuffer: opts.SendBuffer,
		relay:      opts.Relay,
		relayWait:  opts.RelayTimeout,
		metrics:    opts.Metrics,
		logger:     opts.Logger.Named("realtime"),
	}
	if h.relay != nil {
		h.relayOut = make(chan RelayMessage, opts.RelayBuffer)
	}
	return h
}

// Init starts the hub and, when configured, the relay subscription.
func (h *RoomHub) Init(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h.cancel = cancel
	h.mu.Unlock()

	if h.relay != nil {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			if err := h.relay.Run(runCtx, h.deliverRelayed); err != nil && !errors.Is(err, context.Canceled) {
				h.logger.Error("relay stopped", zap.Error(err))
			}
		}()
		go func() {
			defer h.wg.Done()
			h.forwardToRelay(runCtx)
		}()
	}
	h.logger.Info("hub started", zap.Bool("relay", h.relay != nil))
	return nil
}

// Shutdown disconnects every client and stops the relay.
func (h *RoomHub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
	cancel := h.cancel
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
		h.metrics.ConnectionClosed()
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if h.relay != nil {
		if err := h.relay.Close(); err != nil {
			h.logger.Warn("relay close failed", zap.Error(err))
		}
	}
	h.logger.Info("hub stopped", zap.Int("disconnected", len(clients)))
	return nil
}

// Register creates a connection with no room memberships.
func (h *RoomHub) Register() (*Client, error) {
	c := newClient(h.sendBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return nil, ErrHubClosed
	}
	h.clients[c.id] = c
	h.metrics.ConnectionOpened()
	h.logger.Debug("connection registered", zap.String("conn_id", c.id))
	return c, nil
}

// Unregister drops the connection from every room it joined.
func (h *RoomHub) Unregister(connID string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if ok {
		for room := range c.rooms {
			h.removeMemberLocked(room, connID)
		}
		c.rooms = nil
		delete(h.clients, connID)
	}
	h.mu.Unlock()

	if ok {
		c.close()
		h.metrics.ConnectionClosed()
		h.logger.Debug("connection unregistered", zap.String("conn_id", connID))
	}
}

func (h *RoomHub) Join(connID, ticketID string) error {
	room := RoomName(ticketID)
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return ErrUnknownConnection
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[connID] = c
	c.rooms[room] = struct{}{}
	return nil
}

func (h *RoomHub) Leave(connID, ticketID string) {
	room := RoomName(ticketID)
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(c.rooms, room)
	h.removeMemberLocked(room, connID)
}

func (h *RoomHub) removeMemberLocked(room, connID string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// RoomSize returns the number of connections joined to the ticket's room.
func (h *RoomHub) RoomSize(ticketID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[RoomName(ticketID)])
}

// ConnectionCount returns the number of registered connections.
func (h *RoomHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *RoomHub) PublishToRoom(ticketID, event string, payload any) {
	h.publish(RoomName(ticketID), event, payload)
}

func (h *RoomHub) PublishToAll(event string, payload any) {
	h.publish("", event, payload)
}

func (h *RoomHub) publish(room, event string, payload any) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		h.logger.Error("encode frame failed", zap.String("event", event), zap.Error(err))
		return
	}
	h.deliverLocal(room, event, frame)

	if h.relayOut != nil {
		select {
		case h.relayOut <- RelayMessage{Origin: h.origin, Room: room, Event: event, Frame: frame}:
		default:
			h.metrics.RecordDrop(event)
			h.logger.Warn("relay backlog full, frame not relayed", zap.String("event", event), zap.String("room", room))
		}
	}
}

// forwardToRelay publishes queued frames in order, off the caller's path.
func (h *RoomHub) forwardToRelay(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.relayOut:
			pubCtx, cancel := context.WithTimeout(ctx, h.relayWait)
			err := h.relay.Publish(pubCtx, msg)
			cancel()
			if err != nil {
				h.logger.Warn("relay publish failed", zap.String("event", msg.Event), zap.String("room", msg.Room), zap.Error(err))
			}
		}
	}
}

func (h *RoomHub) deliverRelayed(msg RelayMessage) {
	if msg.Origin == h.origin {
		return
	}
	h.deliverLocal(msg.Room, msg.Event, msg.Frame)
}

// deliverLocal enqueues frame on every target outbox. An empty room means all
// connections. Full outboxes drop the frame for that connection only.
func (h *RoomHub) deliverLocal(room, event string, frame []byte) {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return
	}
	source := h.clients
	if room != "" {
		source = h.rooms[room]
	}
	targets := make([]*Client, 0, len(source))
	for _, c := range source {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.enqueue(frame) {
			h.metrics.RecordDelivery(event)
			continue
		}
		h.metrics.RecordDrop(event)
		h.logger.Debug("outbox full, frame dropped",
			zap.String("conn_id", c.id), zap.String("event", event), zap.String("room", room))
	}
}

func (h *RoomHub) HandleFrame(connID string, raw []byte) error {
	event, ticketID, err := DecodeClientFrame(raw)
	if err != nil {
		h.sendTo(connID, FrameError, map[string]string{"message": err.Error()})
		return err
	}

	switch event {
	case FrameJoinTicket:
		if err := h.Join(connID, ticketID); err != nil {
			return err
		}
		h.sendTo(connID, FrameJoined, ticketID)
	case FrameLeaveTicket:
		h.Leave(connID, ticketID)
		h.sendTo(connID, FrameLeft, ticketID)
	}
	return nil
}

func (h *RoomHub) sendTo(connID, event string, payload any) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok && !c.enqueue(frame) {
		h.metrics.RecordDrop(event)
	}
}
