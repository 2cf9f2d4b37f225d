package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Client is one registered connection, whatever its transport. The hub
// enqueues encoded frames on the outbox; the transport drains it.
type Client struct {
	id    string
	send  chan []byte
	done  chan struct{}
	once  sync.Once
	rooms map[string]struct{} // guarded by the hub lock
}

func newClient(buffer int) *Client {
	return &Client{
		id:    uuid.NewString(),
		send:  make(chan []byte, buffer),
		done:  make(chan struct{}),
		rooms: make(map[string]struct{}),
	}
}

// ID is the connection id used for join and leave.
func (c *Client) ID() string { return c.id }

// Outbox yields frames in enqueue order. It is never closed; watch Done.
func (c *Client) Outbox() <-chan []byte { return c.send }

// Done is closed when the client is unregistered.
func (c *Client) Done() <-chan struct{} { return c.done }

// enqueue hands msg to the outbox without blocking and reports whether it fit.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}
