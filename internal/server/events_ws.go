package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/confluence/internal/events"
)

// EventsWSHandler streams run lifecycle events over a websocket, for clients
// that keep a bidirectional connection instead of SSE.
type EventsWSHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsWSHandler creates a new websocket stream handler
func NewEventsWSHandler(bus *events.Bus, log zerolog.Logger) *EventsWSHandler {
	return &EventsWSHandler{
		bus: bus,
		log: log.With().Str("component", "events_ws").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws requests
func (h *EventsWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	subscribed := subscribedTypes(r.URL.Query().Get("types"))
	h.log.Info().Int("types", len(subscribed)).Msg("Client connected to websocket stream")

	eventChan := make(chan *events.Event, 100)
	unsubscribe := h.bus.SubscribeAll(subscribed, func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().Str("event_type", string(event.Type)).Msg("Websocket channel full, dropping event")
		}
	})
	defer unsubscribe()

	ctx := r.Context()

	// Drain reads so pings are answered and disconnects surface promptly.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return

		case <-readDone:
			h.log.Info().Msg("Client disconnected from websocket stream")
			return

		case event := <-eventChan:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, wireFrame(event))
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Websocket write failed, dropping client")
				return
			}
		}
	}
}
