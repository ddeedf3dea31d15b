// Package memory provides an in-process transport for tests and
// single-binary demos.
package memory

import (
	"context"
	"sync"

	"trivia-live-service/internal/transport"
)

type subscriber struct {
	channels map[string]struct{}
	ch       chan transport.Inbound
}

// Bus is an in-memory broadcast transport. Every subscriber to a channel
// receives every publish on it, the publisher's own subscriptions included.
type Bus struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[*subscriber]struct{})}
}

func (b *Bus) Publish(_ context.Context, channel string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		if _, ok := sub.channels[channel]; !ok {
			continue
		}
		msg := transport.Inbound{Channel: channel, Data: data}
		select {
		case sub.ch <- msg:
		default:
			// Drop the oldest pending message so a slow consumer never
			// blocks the rest of the bus.
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- msg
		}
	}
	return nil
}

func (b *Bus) Subscribe(_ context.Context, channels ...string) (<-chan transport.Inbound, func(), error) {
	sub := &subscriber{
		channels: make(map[string]struct{}, len(channels)),
		ch:       make(chan transport.Inbound, 64),
	}
	for _, c := range channels {
		sub.channels[c] = struct{}{}
	}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[sub]; ok {
			delete(b.subscribers, sub)
			close(sub.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel, nil
}

func (b *Bus) Status() string {
	return transport.StatusConnected
}
