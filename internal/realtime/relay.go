package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RelayMessage carries an encoded frame between hub instances. An empty Room
// addresses every connection.
type RelayMessage struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room,omitempty"`
	Event  string          `json:"event"`
	Frame  json.RawMessage `json:"frame"`
}

// Relay fans frames out to other processes. Without one the hub only reaches
// connections held by this process.
type Relay interface {
	Publish(ctx context.Context, msg RelayMessage) error
	// Run delivers messages from other instances until ctx is cancelled.
	Run(ctx context.Context, deliver func(RelayMessage)) error
	Close() error
}

// RedisRelay implements Relay on Redis pub/sub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisRelay builds a relay on channel.
func NewRedisRelay(client *redis.Client, channel string, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{client: client, channel: channel, logger: logger.Named("relay")}
}

func (r *RedisRelay) Publish(ctx context.Context, msg RelayMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode relay message: %w", err)
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

func (r *RedisRelay) Run(ctx context.Context, deliver func(RelayMessage)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("relay subscribed", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg RelayMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				r.logger.Warn("discarding malformed relay message", zap.Error(err))
				continue
			}
			deliver(msg)
		}
	}
}

// Close is a no-op; the shared client is owned by persistence.
func (r *RedisRelay) Close() error { return nil }
