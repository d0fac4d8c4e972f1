package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/dealdesk/internal/events"
	"github.com/aristath/dealdesk/internal/utils"
	"github.com/rs/zerolog"
)

// streamedEventTypes are the bus events forwarded to stream clients
var streamedEventTypes = []events.EventType{
	events.RecordsChanged,
	events.InsightsRefreshed,
	events.DashboardUpdated,
	events.BackupCompleted,
	events.JobStarted,
	events.JobCompleted,
	events.JobFailed,
	events.ErrorOccurred,
}

// EventsStreamHandler streams bus events to clients as Server-Sent Events
type EventsStreamHandler struct {
	eventBus          *events.Bus
	heartbeatInterval time.Duration
	log               zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus:          eventBus,
		heartbeatInterval: 30 * time.Second,
		log:               log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream. ?types=A,B limits the stream to
// the named event types.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	eventTypes, err := parseEventTypes(r.URL.Query().Get("types"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_QUERY", h.log)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported", "INTERNAL_ERROR", h.log)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Buffered so a slow client never blocks the emitter
	eventChan := make(chan *events.Event, 100)
	handler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	ids := make(map[events.EventType]events.SubscriptionID, len(eventTypes))
	for _, eventType := range eventTypes {
		ids[eventType] = h.eventBus.Subscribe(eventType, handler)
	}
	defer func() {
		for eventType, id := range ids {
			h.eventBus.Unsubscribe(eventType, id)
		}
	}()

	h.log.Info().Int("types", len(eventTypes)).Msg("Client connected to event stream")

	h.send(w, flusher, map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	})

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			h.send(w, flusher, map[string]interface{}{
				"type":      string(event.Type),
				"module":    event.Module,
				"timestamp": event.Timestamp.Format(time.RFC3339),
				"data":      event.Data,
			})

		case <-heartbeat.C:
			h.send(w, flusher, map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			})
		}
	}
}

func (h *EventsStreamHandler) send(w http.ResponseWriter, flusher http.Flusher, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		data = []byte(`{"error":"failed to encode event"}`)
	}

	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// parseEventTypes returns every streamed type for an empty filter and
// rejects names that are never streamed
func parseEventTypes(filter string) ([]events.EventType, error) {
	if strings.TrimSpace(filter) == "" {
		return streamedEventTypes, nil
	}

	known := make(map[events.EventType]bool, len(streamedEventTypes))
	for _, eventType := range streamedEventTypes {
		known[eventType] = true
	}

	seen := make(map[events.EventType]bool)
	var types []events.EventType
	for _, name := range utils.SplitList(filter) {
		eventType := events.EventType(strings.ToUpper(name))
		if seen[eventType] {
			continue
		}
		if !known[eventType] {
			return nil, fmt.Errorf("unknown event type %q", name)
		}
		seen[eventType] = true
		types = append(types, eventType)
	}
	return types, nil
}
