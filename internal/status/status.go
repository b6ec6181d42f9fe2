// Package status assembles a point-in-time view of the merge state: which
// candidate documents are pending, succeeded, or failed, and what the
// artifact on disk currently claims.
package status

import (
	"os"
	"strings"

	"github.com/rameshbaboov/docmerger/internal/artifact"
	"github.com/rameshbaboov/docmerger/internal/config"
	"github.com/rameshbaboov/docmerger/internal/docx"
	"github.com/rameshbaboov/docmerger/internal/ledger"
)

// Pending marks a candidate file with no ledger row yet. The other two
// outcome values come from the ledger itself.
const Pending = "pending"

// FileStatus describes one candidate file in the input folder.
type FileStatus struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"` // "success", "error", or "pending"
}

// Report is the full status snapshot.
type Report struct {
	InputDir       string       `json:"inputDir"`
	ArtifactPath   string       `json:"artifactPath"`
	ArtifactExists bool         `json:"artifactExists"`
	LastMerged     string       `json:"lastMerged,omitempty"`
	LedgerPath     string       `json:"ledgerPath"`
	Files          []FileStatus `json:"files"`
	Pending        int          `json:"pending"`
	Succeeded      int          `json:"succeeded"`
	Failed         int          `json:"failed"`
}

// Collect builds a report from the ledger, the input folder, and the
// artifact. A missing input folder reads as empty; a corrupt artifact is
// reported as existing without a stamp rather than failing the report.
func Collect(cfg config.Settings) (*Report, error) {
	led := ledger.New(cfg.ProcessedFile)
	outcomes, err := led.Load()
	if err != nil {
		return nil, err
	}

	rep := &Report{
		InputDir:     cfg.InputDir,
		ArtifactPath: cfg.ArtifactPath(),
		LedgerPath:   cfg.ProcessedFile,
	}

	store := artifact.NewStore(cfg.ArtifactPath())
	if store.Exists() {
		rep.ArtifactExists = true
		if doc, err := docx.Open(cfg.ArtifactPath()); err == nil {
			rep.LastMerged = doc.LastMerged()
		}
	}

	entries, err := os.ReadDir(cfg.InputDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), cfg.Extension) {
			continue
		}
		fs := FileStatus{Name: e.Name(), Outcome: Pending}
		if outcome, ok := outcomes[e.Name()]; ok {
			fs.Outcome = string(outcome)
		}
		switch fs.Outcome {
		case string(ledger.OutcomeSuccess):
			rep.Succeeded++
		case string(ledger.OutcomeError):
			rep.Failed++
		default:
			rep.Pending++
		}
		rep.Files = append(rep.Files, fs)
	}
	return rep, nil
}
