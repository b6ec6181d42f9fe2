// Package merge drives merge passes: list the input folder, pull each
// unprocessed document's content into the cumulative artifact, persist after
// every document, and record the outcome in the ledger. A document is
// attempted at most once; failures are recorded and never retried.
package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rameshbaboov/docmerger/internal/artifact"
	"github.com/rameshbaboov/docmerger/internal/extract"
	"github.com/rameshbaboov/docmerger/internal/ledger"
)

// historyCapacity bounds the in-memory pass history.
const historyCapacity = 50

// Config carries the per-driver settings.
type Config struct {
	// InputDir is the folder scanned for source documents. It is created
	// if missing.
	InputDir string
	// Extension filters candidate filenames, e.g. ".docx".
	Extension string
}

// FileResult is the outcome of one attempted document.
type FileResult struct {
	Name    string         `json:"name"`
	Outcome ledger.Outcome `json:"outcome"`
	Error   string         `json:"error,omitempty"`
}

// PassResult summarizes one completed merge pass.
type PassResult struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Candidates int          `json:"candidates"`
	Skipped    int          `json:"skipped"`
	Processed  int          `json:"processed"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Recovered  []string     `json:"recovered,omitempty"`
	Files      []FileResult `json:"files,omitempty"`
}

// Duration returns the pass's wall-clock time.
func (r PassResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Driver executes merge passes against a fixed ledger, artifact store, and
// extraction strategy.
type Driver struct {
	cfg       Config
	ledger    *ledger.Ledger
	store     *artifact.Store
	extractor extract.Extractor
	hub       *Hub
	history   *History
	log       *zap.Logger
}

// NewDriver wires a driver. hub may be nil when no one consumes progress
// events.
func NewDriver(cfg Config, led *ledger.Ledger, store *artifact.Store, ex extract.Extractor, hub *Hub, log *zap.Logger) *Driver {
	return &Driver{
		cfg:       cfg,
		ledger:    led,
		store:     store,
		extractor: ex,
		hub:       hub,
		history:   NewHistory(historyCapacity),
		log:       log,
	}
}

// History exposes the driver's recent pass results.
func (d *Driver) History() *History { return d.history }

// Store exposes the artifact store the driver persists into.
func (d *Driver) Store() *artifact.Store { return d.store }

// Ledger exposes the outcome ledger the driver records into.
func (d *Driver) Ledger() *ledger.Ledger { return d.ledger }

// Strategy reports the extraction strategy the driver was built with.
func (d *Driver) Strategy() extract.Strategy { return d.extractor.Strategy() }

// RunPass executes one complete merge pass. Per-document failures are
// recorded in the ledger and isolated; the pass keeps going. Errors touching
// the ledger or the artifact store itself abort the pass. A pass is not
// cancellable once underway; ctx is only consulted before work starts.
func (d *Driver) RunPass(ctx context.Context) (*PassResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &PassResult{ID: uuid.NewString(), StartedAt: time.Now()}
	log := d.log.With(zap.String("passId", res.ID))

	if err := os.MkdirAll(d.cfg.InputDir, 0o755); err != nil {
		return nil, fmt.Errorf("merge: create input directory: %w", err)
	}

	processed, err := d.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("merge: load ledger: %w", err)
	}

	art, err := d.store.Open()
	if err != nil {
		return nil, fmt.Errorf("merge: open artifact: %w", err)
	}

	// A persisted artifact stamped with a source that never reached the
	// ledger means the previous run stopped between persisting and
	// recording. The content is already in the artifact, so complete the
	// record instead of merging the document a second time.
	if last := art.LastMerged(); last != "" {
		if _, ok := processed[last]; !ok {
			if err := d.ledger.Record(last, ledger.OutcomeSuccess); err != nil {
				return nil, fmt.Errorf("merge: recover outcome for %s: %w", last, err)
			}
			processed[last] = ledger.OutcomeSuccess
			res.Recovered = append(res.Recovered, last)
			log.Warn("recovered unrecorded outcome", zap.String("filename", last))
			d.hub.Publish(Event{Kind: EventOutcomeRecovered, PassID: res.ID, Time: time.Now(), Filename: last, Outcome: ledger.OutcomeSuccess})
		}
	}

	names, err := d.listCandidates()
	if err != nil {
		return nil, err
	}
	res.Candidates = len(names)

	log.Info("merge pass started",
		zap.String("inputDir", d.cfg.InputDir),
		zap.String("strategy", string(d.extractor.Strategy())),
		zap.Int("candidates", res.Candidates))
	d.hub.Publish(Event{Kind: EventPassStarted, PassID: res.ID, Time: res.StartedAt, Candidates: res.Candidates})

	for _, name := range names {
		if _, ok := processed[name]; ok {
			res.Skipped++
			continue
		}
		res.Processed++

		blocks, err := d.extractor.Extract(filepath.Join(d.cfg.InputDir, name))
		if err != nil {
			// The artifact is untouched; record and move on.
			log.Warn("document unreadable", zap.String("filename", name), zap.Error(err))
			if rerr := d.record(res, name, ledger.OutcomeError, err); rerr != nil {
				return nil, rerr
			}
			continue
		}

		if art.HasContent() {
			art.AppendSeparator()
		}
		art.AppendBlocks(blocks)

		if err := art.Persist(name); err != nil {
			// In-memory state now contains this document; discard it by
			// reloading the last persisted artifact before continuing.
			log.Warn("persist failed", zap.String("filename", name), zap.Error(err))
			if rerr := d.record(res, name, ledger.OutcomeError, err); rerr != nil {
				return nil, rerr
			}
			fresh, oerr := d.store.Open()
			if oerr != nil {
				return nil, fmt.Errorf("merge: reload artifact: %w", oerr)
			}
			art = fresh
			continue
		}

		log.Info("document merged", zap.String("filename", name), zap.Int("blocks", len(blocks)))
		if rerr := d.record(res, name, ledger.OutcomeSuccess, nil); rerr != nil {
			return nil, rerr
		}
	}

	res.FinishedAt = time.Now()
	log.Info("merge pass finished",
		zap.Int("candidates", res.Candidates),
		zap.Int("skipped", res.Skipped),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Duration("elapsed", res.Duration()))
	d.hub.Publish(Event{
		Kind:       EventPassFinished,
		PassID:     res.ID,
		Time:       res.FinishedAt,
		Candidates: res.Candidates,
		Skipped:    res.Skipped,
		Succeeded:  res.Succeeded,
		Failed:     res.Failed,
	})
	d.history.Add(res)
	return res, nil
}

// listCandidates returns matching filenames in lexicographic order.
func (d *Driver) listCandidates() ([]string, error) {
	entries, err := os.ReadDir(d.cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("merge: list input directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), d.cfg.Extension) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// record appends the outcome row and folds the result into the pass summary.
// A ledger write failure is fatal: without the row the document could be
// attempted again on the next pass.
func (d *Driver) record(res *PassResult, name string, outcome ledger.Outcome, cause error) error {
	if err := d.ledger.Record(name, outcome); err != nil {
		return fmt.Errorf("merge: record outcome for %s: %w", name, err)
	}
	fr := FileResult{Name: name, Outcome: outcome}
	ev := Event{Kind: EventFileProcessed, PassID: res.ID, Time: time.Now(), Filename: name, Outcome: outcome}
	if cause != nil {
		fr.Error = cause.Error()
		ev.Error = cause.Error()
	}
	res.Files = append(res.Files, fr)
	switch outcome {
	case ledger.OutcomeSuccess:
		res.Succeeded++
	case ledger.OutcomeError:
		res.Failed++
	}
	d.hub.Publish(ev)
	return nil
}
