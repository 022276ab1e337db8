package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rendis/flowcanvas/internal/streaming"
)

const sseHeartbeat = 15 * time.Second

// handleSSE streams editor events. ?integration and a comma separated
// ?types narrow the stream; a type may be a family such as "layout.*".
// Each event carries the hub sequence number as its SSE id.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hub == nil {
		writeNotImplemented(w, "event hub")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	filter := streaming.EventFilter{Integration: q.Get("integration")}
	for _, t := range strings.Split(q.Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter.EventTypes = append(filter.EventTypes, t)
		}
	}

	events, stop, err := s.deps.Hub.Subscribe(r.Context(), filter)
	if err != nil {
		s.deps.Logger.ErrorContext(r.Context(), "event subscription failed", "error", err)
		http.Error(w, "subscribe failed", http.StatusInternalServerError)
		return
	}
	defer stop()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-heartbeat.C:
			// Comment lines keep idle proxies from closing the stream.
			fmt.Fprint(w, ": ping\n\n")
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.deps.Logger.WarnContext(r.Context(), "drop unencodable event", "event_type", ev.EventType, "error", err)
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.EventType, data)
		}
		flusher.Flush()
	}
}
