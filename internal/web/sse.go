package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rameshbaboov/docmerger/internal/merge"
)

// keepaliveInterval spaces SSE comment frames so idle proxies keep the
// connection open.
const keepaliveInterval = 15 * time.Second

// sseWriter writes Server-Sent Events to an http.ResponseWriter.
// Call init once before writing any events to set the required headers.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	f, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: f}
}

func (sw *sseWriter) init() {
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// writeEvent serializes the event as JSON and writes it in SSE format:
//
//	data: {json}\n\n
func (sw *sseWriter) writeEvent(ev merge.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("sse: marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("sse: write event: %w", err)
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}

// comment writes an SSE comment frame, used as a keepalive.
func (sw *sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(sw.w, ": %s\n\n", text); err != nil {
		return fmt.Errorf("sse: write comment: %w", err)
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}

// handleEvents streams merge progress events until the client disconnects.
// The subscription is taken before headers flush, so a client that has seen
// the response headers will not miss subsequent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ch, cancel := s.hub.Subscribe()
	defer cancel()

	sw := newSSEWriter(w)
	sw.init()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := sw.writeEvent(ev); err != nil {
				return
			}
		case <-keepalive.C:
			if err := sw.comment("keepalive"); err != nil {
				return
			}
		}
	}
}
