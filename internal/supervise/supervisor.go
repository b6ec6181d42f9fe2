// Package supervise schedules merge passes. A supervisor either runs a
// background loop (pass, sleep, pass, ...) or executes single passes on
// demand, never both at once: every pass goes through one mutex, so two
// passes can never interleave their artifact writes.
package supervise

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rameshbaboov/docmerger/internal/merge"
)

// ErrBusy is returned by RunOnce when the loop is active or another
// on-demand pass has not finished yet.
var ErrBusy = errors.New("supervise: a merge pass is already running")

// PassRunner executes one merge pass. *merge.Driver implements it.
type PassRunner interface {
	RunPass(ctx context.Context) (*merge.PassResult, error)
}

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	Running         bool      `json:"running"`
	StartedAt       time.Time `json:"startedAt"`
	IntervalSeconds int       `json:"intervalSeconds"`
	PassesRun       int       `json:"passesRun"`
}

// Supervisor owns the scheduling state around a PassRunner.
type Supervisor struct {
	runner PassRunner
	log    *zap.Logger

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	interval  time.Duration
	passes    int
	cancel    context.CancelFunc
	done      chan struct{}

	// passMu serializes passes between the loop and RunOnce.
	passMu sync.Mutex
}

// New returns a stopped supervisor around runner.
func New(runner PassRunner, log *zap.Logger) *Supervisor {
	return &Supervisor{runner: runner, log: log}
}

// Start launches the background loop with the given interval between passes.
// The first pass runs immediately. Starting an already-running supervisor is
// a no-op.
func (s *Supervisor) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("supervise: interval must be positive, got %s", interval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.startedAt = time.Now()
	s.interval = interval
	s.passes = 0

	go s.loop(ctx, s.done, interval)
	s.log.Info("merge loop started", zap.Duration("interval", interval))
	return nil
}

func (s *Supervisor) loop(ctx context.Context, done chan struct{}, interval time.Duration) {
	defer close(done)
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		s.runScheduled(ctx)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		timer.Reset(interval)
	}
}

// runScheduled executes one loop iteration. Pass errors are logged and the
// loop keeps going; conditions like an unreadable ledger may well be
// transient from the loop's point of view, and the next pass re-evaluates
// everything from disk anyway.
func (s *Supervisor) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.passMu.Lock()
	defer s.passMu.Unlock()

	s.mu.Lock()
	s.passes++
	s.mu.Unlock()

	// A stop request takes effect between passes; one already underway
	// runs to completion.
	if _, err := s.runner.RunPass(context.WithoutCancel(ctx)); err != nil {
		s.log.Error("scheduled merge pass failed", zap.Error(err))
	}
}

// Stop cancels the loop and waits for it to wind down. An in-flight pass
// finishes first; ctx bounds how long to wait for that. Stopping a stopped
// supervisor is a no-op.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("supervise: waiting for loop to stop: %w", ctx.Err())
	}

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()
	s.log.Info("merge loop stopped")
	return nil
}

// RunOnce executes a single pass immediately. It refuses with ErrBusy while
// the loop is running or while another on-demand pass is in flight.
func (s *Supervisor) RunOnce(ctx context.Context) (*merge.PassResult, error) {
	if s.Running() {
		return nil, ErrBusy
	}
	if !s.passMu.TryLock() {
		return nil, ErrBusy
	}
	defer s.passMu.Unlock()
	return s.runner.RunPass(ctx)
}

// Running reports whether the loop is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns a snapshot of the supervisor's state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:   s.running,
		PassesRun: s.passes,
	}
	if s.running {
		st.StartedAt = s.startedAt
		st.IntervalSeconds = int(s.interval / time.Second)
	}
	return st
}
