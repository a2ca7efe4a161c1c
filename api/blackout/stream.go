package blackout

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/powergrid-labs/blackoutd/core/events"
	"github.com/powergrid-labs/blackoutd/internal/eventbus"
)

// stream pushes incident lifecycle events to the client as server-sent
// events. Each event carries the same payload an MQTT subscriber would see.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-sub:
			if !open {
				return
			}
			kind, known := streamKind(ev)
			if !known {
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.log.Errorf("marshal %s event: %v", kind, err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", kind, payload)
			flusher.Flush()
		}
	}
}

func streamKind(ev eventbus.Event) (string, bool) {
	switch ev.(type) {
	case events.AlertEvent:
		return "blackout_alert", true
	case events.UpdateEvent:
		return "blackout_update", true
	case events.ProgressEvent:
		return "recovery_progress", true
	case events.ResolvedEvent:
		return "blackout_resolved", true
	case events.ManualAllocationEvent:
		return "manual_allocation", true
	default:
		return "", false
	}
}
