// Package ws bridges websocket clients onto the channel transport, so
// remote players can publish and subscribe without a broker connection
// of their own.
package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"trivia-live-service/internal/message"
	"trivia-live-service/internal/transport"
)

// Frame is one websocket message: a channel name plus the raw envelope.
type Frame struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

var gameChannels = map[string]struct{}{
	message.ChannelLobby:       {},
	message.ChannelQuestions:   {},
	message.ChannelAnswers:     {},
	message.ChannelGameControl: {},
}

type Handler struct {
	bus      transport.Transport
	upgrader websocket.Upgrader
}

func NewHandler(bus transport.Transport) *Handler {
	return &Handler{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the connection and relays frames in both directions:
// every game-channel message goes out to the socket, and every inbound
// frame is published to the bus. Frames for unknown channels are dropped.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	inbound, cancel, err := h.bus.Subscribe(r.Context(),
		message.ChannelLobby, message.ChannelQuestions,
		message.ChannelAnswers, message.ChannelGameControl)
	if err != nil {
		log.Printf("ws subscribe failed: %v", err)
		return
	}
	defer cancel()

	send := make(chan Frame, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pumpDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for frame := range send {
			if err := conn.WriteJSON(frame); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(pumpDone)
		for {
			select {
			case in, ok := <-inbound:
				if !ok {
					return
				}
				select {
				case send <- Frame{Channel: in.Channel, Data: in.Data}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}
		if _, known := gameChannels[frame.Channel]; !known {
			continue
		}
		if err := h.bus.Publish(r.Context(), frame.Channel, frame.Data); err != nil {
			log.Printf("ws publish to %s: %v", frame.Channel, err)
		}
	}

	close(closeSignals)
	<-pumpDone
	close(send)
	<-writerDone
}
