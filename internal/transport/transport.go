// Package transport defines the pub/sub channel interface the game is
// coordinated over. Delivery is at-least-once and FIFO per publisher on a
// channel; ordering across channels is not guaranteed, and messages sent
// while disconnected are lost, not queued.
package transport

import "context"

// Connection status values surfaced to both state machines.
const (
	StatusConnected    = "connected"
	StatusReconnecting = "reconnecting"
	StatusDisconnected = "disconnected"
)

// Inbound is one raw message received from a channel.
type Inbound struct {
	Channel string
	Data    []byte
}

// Transport delivers opaque payloads over named broadcast channels.
type Transport interface {
	// Publish sends data to everyone subscribed to channel, including the
	// publisher's own subscriptions.
	Publish(ctx context.Context, channel string, data []byte) error
	// Subscribe returns a stream of messages for the given channels. The
	// cancel func releases the subscription and closes the stream.
	Subscribe(ctx context.Context, channels ...string) (<-chan Inbound, func(), error)
	// Status reports the current connection state.
	Status() string
}
