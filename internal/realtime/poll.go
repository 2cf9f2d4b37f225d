package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownSession is returned for expired or never-opened poll sessions.
var ErrUnknownSession = errors.New("realtime: unknown poll session")

const maxFramesPerPoll = 256

type pollSession struct {
	client   *Client
	lastSeen time.Time
}

// PollManager is the long-polling fallback. Each session owns a hub
// connection, so rooms and delivery behave exactly as for websockets.
type PollManager struct {
	hub  Hub
	wait time.Duration
	idle time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*pollSession
	logger   *zap.Logger
}

// NewPollManager builds a manager. wait bounds how long Drain holds an empty
// poll; idle is how long an unpolled session survives.
func NewPollManager(hub Hub, wait, idle time.Duration, logger *zap.Logger) *PollManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollManager{
		hub:      hub,
		wait:     wait,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*pollSession),
		logger:   logger.Named("poll"),
	}
}

// Open registers a session and returns its id.
func (p *PollManager) Open() (string, error) {
	client, err := p.hub.Register()
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	p.sessions[client.ID()] = &pollSession{client: client, lastSeen: p.now()}
	p.mu.Unlock()
	return client.ID(), nil
}

func (p *PollManager) touch(sid string) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[sid]
	if !ok {
		return nil, ErrUnknownSession
	}
	s.lastSeen = p.now()
	return s.client, nil
}

// Send applies a join-ticket or leave-ticket frame for the session.
func (p *PollManager) Send(sid string, raw []byte) error {
	if _, err := p.touch(sid); err != nil {
		return err
	}
	return p.hub.HandleFrame(sid, raw)
}

// Drain waits until at least one frame is queued, the wait elapses or ctx
// ends, then returns everything queued without blocking further.
func (p *PollManager) Drain(ctx context.Context, sid string) ([]json.RawMessage, error) {
	client, err := p.touch(sid)
	if err != nil {
		return nil, err
	}

	frames := make([]json.RawMessage, 0)
	timer := time.NewTimer(p.wait)
	defer timer.Stop()

	select {
	case msg := <-client.Outbox():
		frames = append(frames, msg)
	case <-timer.C:
		return frames, nil
	case <-ctx.Done():
		return frames, nil
	case <-client.Done():
		return nil, ErrUnknownSession
	}

	for len(frames) < maxFramesPerPoll {
		select {
		case msg := <-client.Outbox():
			frames = append(frames, msg)
		default:
			_, _ = p.touch(sid)
			return frames, nil
		}
	}
	_, _ = p.touch(sid)
	return frames, nil
}

// Close ends the session and its room memberships.
func (p *PollManager) Close(sid string) {
	p.mu.Lock()
	_, ok := p.sessions[sid]
	delete(p.sessions, sid)
	p.mu.Unlock()
	if ok {
		p.hub.Unregister(sid)
	}
}

// Reap closes sessions idle for longer than the idle window and returns how many.
func (p *PollManager) Reap() int {
	cutoff := p.now().Add(-p.idle)
	var stale []string
	p.mu.Lock()
	for sid, s := range p.sessions {
		if s.lastSeen.Before(cutoff) {
			stale = append(stale, sid)
			delete(p.sessions, sid)
		}
	}
	p.mu.Unlock()

	for _, sid := range stale {
		p.hub.Unregister(sid)
	}
	if len(stale) > 0 {
		p.logger.Debug("reaped idle poll sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run reaps idle sessions until ctx is cancelled.
func (p *PollManager) Run(ctx context.Context) {
	interval := p.idle / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Reap()
		}
	}
}
