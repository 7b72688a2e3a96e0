package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/events"
)

// lifecycleEventTypes is every event class the streams forward.
var lifecycleEventTypes = []events.EventType{
	events.RunStarted,
	events.RunCompleted,
	events.RunFailed,
	events.RegimeChanged,
	events.ArchiveUploaded,
	events.ErrorOccurred,
}

// EventsStreamHandler streams run lifecycle events over Server-Sent Events.
type EventsStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsStreamHandler creates a new SSE stream handler
func NewEventsStreamHandler(bus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		bus: bus,
		log: log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	subscribed := subscribedTypes(r.URL.Query().Get("types"))

	h.log.Info().Int("types", len(subscribed)).Msg("Client connected to event stream")

	// Buffered so a slow client drops events instead of blocking publishers.
	eventChan := make(chan *events.Event, 100)
	unsubscribe := h.bus.SubscribeAll(subscribed, func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().Str("event_type", string(event.Type)).Msg("Event channel full, dropping event")
		}
	})
	defer unsubscribe()

	fmt.Fprintf(w, "data: %s\n\n", h.encode(controlFrame("connected",
		map[string]interface{}{"message": "Connected to event stream"})))
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	done := r.Context().Done()
	for {
		select {
		case <-done:
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			fmt.Fprintf(w, "data: %s\n\n", h.encode(wireFrame(event)))
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprintf(w, "data: %s\n\n", h.encode(controlFrame("heartbeat", nil)))
			flusher.Flush()
		}
	}
}

func (h *EventsStreamHandler) encode(frame *events.EventWithData) string {
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return `{"error":"failed to encode event"}`
	}
	return string(data)
}

// wireFrame converts a bus event into the typed frame both streams send.
func wireFrame(event *events.Event) *events.EventWithData {
	return &events.EventWithData{
		Type:      event.Type,
		Timestamp: event.Timestamp,
		Module:    event.Module,
		Data:      event.Data,
	}
}

// controlFrame builds a stream housekeeping frame (connected, heartbeat) in
// the same envelope as real events, so clients parse one shape.
func controlFrame(kind events.EventType, data map[string]interface{}) *events.EventWithData {
	frame := &events.EventWithData{
		Type:      kind,
		Timestamp: time.Now().UTC(),
		Module:    "server",
	}
	if data != nil {
		frame.Data = &events.GenericEventData{Type: kind, Data: data}
	}
	return frame
}

// subscribedTypes parses the optional comma-separated types filter. An empty
// filter subscribes to every lifecycle event.
func subscribedTypes(filter string) []events.EventType {
	if filter == "" {
		return lifecycleEventTypes
	}

	known := make(map[events.EventType]bool, len(lifecycleEventTypes))
	for _, t := range lifecycleEventTypes {
		known[t] = true
	}

	var out []events.EventType
	for _, raw := range strings.Split(filter, ",") {
		t := events.EventType(strings.TrimSpace(raw))
		if known[t] {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return lifecycleEventTypes
	}
	return out
}
