// Package ledger persists per-file merge outcomes as an append-only CSV file.
// Each row is (filename, outcome). The file is both the dedup index consulted
// before processing a file and the operator-facing processing history, so it
// stays plain CSV rather than a binary store.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// Outcome is the recorded result of processing one source document.
type Outcome string

const (
	// OutcomeSuccess marks a document whose content reached the artifact.
	OutcomeSuccess Outcome = "success"
	// OutcomeError marks a document that failed and is not retried.
	OutcomeError Outcome = "error"
)

// IOError wraps a failure to read or write the ledger file. Ledger failures
// are fatal to a merge pass: without the ledger, processing a document could
// not be recorded and the at-most-once guarantee would be lost.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("ledger: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Entry is one recorded row in file order.
type Entry struct {
	Filename string
	Outcome  Outcome
}

// Ledger reads and appends the outcome file at a fixed path.
type Ledger struct {
	path string
}

// New returns a ledger bound to path. The file is created on first Record.
func New(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the ledger file's path.
func (l *Ledger) Path() string { return l.path }

// Entries returns every well-formed row in file order. A missing file is an
// empty ledger. Rows that do not parse as two-field CSV records are skipped
// so that one corrupt line cannot block all future passes.
func (l *Ledger) Entries() ([]Entry, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &IOError{Op: "open", Path: l.path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var entries []Entry
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return nil, &IOError{Op: "read", Path: l.path, Err: err}
		}
		if len(rec) < 2 {
			continue
		}
		entries = append(entries, Entry{Filename: rec[0], Outcome: Outcome(rec[1])})
	}
	return entries, nil
}

// Load returns the set of recorded filenames mapped to their outcome. When a
// filename appears more than once the last row wins.
func (l *Ledger) Load() (map[string]Outcome, error) {
	entries, err := l.Entries()
	if err != nil {
		return nil, err
	}
	m := make(map[string]Outcome, len(entries))
	for _, e := range entries {
		m[e.Filename] = e.Outcome
	}
	return m, nil
}

// Record appends one row and flushes it to stable storage before returning.
// A row that Record reported as written survives a crash immediately after.
func (l *Ledger) Record(filename string, outcome Outcome) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &IOError{Op: "open", Path: l.path, Err: err}
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{filename, string(outcome)}); err != nil {
		f.Close()
		return &IOError{Op: "write", Path: l.path, Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return &IOError{Op: "write", Path: l.path, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return &IOError{Op: "sync", Path: l.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "close", Path: l.path, Err: err}
	}
	return nil
}
