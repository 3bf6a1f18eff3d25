package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes events to subscribers of a channel.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, data interface{}) error
}

// Envelope is the JSON document subscribers receive.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// RedisPublisher publishes events with Redis PUBLISH. The websocket gateway
// subscribes to the same channel names.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher on client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel, event string, data interface{}) error {
	if channel == "" || event == "" {
		return fmt.Errorf("channel and event are required")
	}
	raw, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	if err := p.client.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("publish %s on %s: %w", event, channel, err)
	}
	return nil
}
