package merge

import (
	"fmt"
	"sync"
	"time"

	"github.com/rameshbaboov/docmerger/internal/ledger"
)

// EventKind names a progress event type.
type EventKind string

const (
	EventPassStarted      EventKind = "pass_started"
	EventFileProcessed    EventKind = "file_processed"
	EventPassFinished     EventKind = "pass_finished"
	EventOutcomeRecovered EventKind = "outcome_recovered"
)

// Event is one progress notification from a merge pass.
type Event struct {
	Kind       EventKind      `json:"kind"`
	PassID     string         `json:"passId"`
	Time       time.Time      `json:"time"`
	Filename   string         `json:"filename,omitempty"`
	Outcome    ledger.Outcome `json:"outcome,omitempty"`
	Error      string         `json:"error,omitempty"`
	Candidates int            `json:"candidates,omitempty"`
	Succeeded  int            `json:"succeeded,omitempty"`
	Failed     int            `json:"failed,omitempty"`
	Skipped    int            `json:"skipped,omitempty"`
}

// Hub fans progress events out to any number of subscribers through buffered
// channels. Publishing never blocks; a subscriber that falls more than 64
// events behind silently loses the overflow.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber and returns its event channel along
// with a cancel function that unregisters and closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish sends an event to every subscriber in a non-blocking fashion.
// A nil hub accepts and discards events.
func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			// Drop the event if the subscriber's buffer is full.
		}
	}
}

// FormatEvent formats an Event as a human-readable status line.
func FormatEvent(ev Event) string {
	switch ev.Kind {
	case EventPassStarted:
		return fmt.Sprintf("Merging %d candidate(s)...", ev.Candidates)
	case EventFileProcessed:
		if ev.Outcome == ledger.OutcomeError {
			return fmt.Sprintf("  ✗ %s failed: %s", ev.Filename, ev.Error)
		}
		return fmt.Sprintf("  ✓ %s merged", ev.Filename)
	case EventOutcomeRecovered:
		return fmt.Sprintf("  ✓ %s recovered (merged before restart)", ev.Filename)
	case EventPassFinished:
		return fmt.Sprintf("Pass complete: %d merged, %d failed, %d skipped",
			ev.Succeeded, ev.Failed, ev.Skipped)
	default:
		return fmt.Sprintf("  ? %s (unknown event)", ev.Kind)
	}
}
