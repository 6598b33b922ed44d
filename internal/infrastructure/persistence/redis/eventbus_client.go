package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/messaging"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT BUS CLIENT ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// PubSubClient adapts the go-redis client to messaging.RedisClient so the
// Redis event bus can run on the same connection pool as the cache.
type PubSubClient struct {
	client *redis.Client
}

var _ messaging.RedisClient = (*PubSubClient)(nil)

// NewPubSubClient creates a Pub/Sub adapter over the cache connection.
func NewPubSubClient(cache *Cache) *PubSubClient {
	return &PubSubClient{client: cache.Client()}
}

// Publish publishes a message to a channel.
func (p *PubSubClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return p.client.Publish(ctx, channel, message).Err()
}

// Subscribe subscribes to channels and streams messages until ctx is done.
func (p *PubSubClient) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	sub := p.client.Subscribe(ctx, channels...)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan messaging.RedisMessage)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				out <- messaging.RedisMessage{
					Channel: msg.Channel,
					Payload: msg.Payload,
				}
			}
		}
	}()

	return out, nil
}

// Close is a no-op; the underlying client is owned by the cache.
func (p *PubSubClient) Close() error {
	return nil
}
