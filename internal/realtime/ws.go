package realtime

import (
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxClientFrame = 4096
)

// Conn is the subset of a websocket connection the pumps need. Both the
// fiber and gorilla connection types satisfy it.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// ServeConn registers conn on the hub and pumps frames until either side
// closes. It blocks for the lifetime of the connection.
func ServeConn(hub Hub, conn Conn, ping time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := hub.Register()
	if err != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		return
	}
	log := logger.With(zap.String("conn_id", client.ID()))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writePump(conn, client, ping, log)
	}()

	readPump(hub, conn, client, ping, log)
	hub.Unregister(client.ID())
	<-writerDone
}

func readPump(hub Hub, conn Conn, client *Client, ping time.Duration, log *zap.Logger) {
	readWait := 2 * ping
	conn.SetReadLimit(maxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))

		if err := hub.HandleFrame(client.ID(), raw); err != nil {
			if errors.Is(err, ErrUnknownConnection) {
				return
			}
			log.Debug("client frame rejected", zap.Error(err))
		}
	}
}

func writePump(conn Conn, client *Client, ping time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg := <-client.Outbox():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
