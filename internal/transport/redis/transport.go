// Package redis implements the channel transport over Redis Pub/Sub.
package redis

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"trivia-live-service/internal/transport"
)

// Transport publishes and subscribes through a shared Redis client.
// Publish failures degrade the reported status but are otherwise the
// caller's to log and move past; nothing is queued for redelivery.
type Transport struct {
	client *redis.Client
	status atomic.Value
}

func NewTransport(client *redis.Client) *Transport {
	t := &Transport{client: client}
	t.status.Store(transport.StatusConnected)
	return t
}

func (t *Transport) Publish(ctx context.Context, channel string, data []byte) error {
	if err := t.client.Publish(ctx, channel, data).Err(); err != nil {
		t.status.Store(transport.StatusDisconnected)
		return err
	}
	t.status.Store(transport.StatusConnected)
	return nil
}

func (t *Transport) Subscribe(ctx context.Context, channels ...string) (<-chan transport.Inbound, func(), error) {
	pubsub := t.client.Subscribe(ctx, channels...)
	// Force the SUBSCRIBE round trip so a dead broker fails fast.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		t.status.Store(transport.StatusDisconnected)
		return nil, nil, err
	}

	out := make(chan transport.Inbound, 64)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- transport.Inbound{Channel: msg.Channel, Data: []byte(msg.Payload)}
		}
	}()

	cancel := func() {
		if err := pubsub.Close(); err != nil {
			log.Printf("redis transport: close subscription: %v", err)
		}
	}
	return out, cancel, nil
}

func (t *Transport) Status() string {
	return t.status.Load().(string)
}
