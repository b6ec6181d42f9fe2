package merge

import "sync"

// History keeps the most recent pass results in memory for the dashboard and
// status surfaces. It is a bounded ring: once full, the oldest result is
// evicted. Thread-safe.
type History struct {
	mu      sync.RWMutex
	cap     int
	results []*PassResult
}

// NewHistory creates a history retaining up to capacity results.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{cap: capacity}
}

// Add records a completed pass result.
func (h *History) Add(res *PassResult) {
	if h == nil || res == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, res.clone())
	if len(h.results) > h.cap {
		h.results = h.results[len(h.results)-h.cap:]
	}
}

// Last returns the most recent pass result, or nil when none has run.
func (h *History) Last() *PassResult {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.results) == 0 {
		return nil
	}
	return h.results[len(h.results)-1].clone()
}

// Recent returns up to n results, newest first.
func (h *History) Recent(n int) []PassResult {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n > len(h.results) {
		n = len(h.results)
	}
	out := make([]PassResult, 0, n)
	for i := len(h.results) - 1; i >= len(h.results)-n; i-- {
		out = append(out, *h.results[i].clone())
	}
	return out
}

// clone deep-copies the result so callers cannot mutate stored state.
func (r *PassResult) clone() *PassResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Files = append([]FileResult(nil), r.Files...)
	cp.Recovered = append([]string(nil), r.Recovered...)
	return &cp
}
