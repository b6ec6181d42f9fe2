package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rameshbaboov/docmerger/internal/config"
	"github.com/rameshbaboov/docmerger/internal/ledger"
	"github.com/rameshbaboov/docmerger/internal/merge"
	"github.com/rameshbaboov/docmerger/internal/status"
	"github.com/rameshbaboov/docmerger/internal/supervise"
)

// PassInvoker triggers a single merge pass. *supervise.Supervisor
// implements it.
type PassInvoker interface {
	RunOnce(ctx context.Context) (*merge.PassResult, error)
}

// MergeService handles MCP tool calls for the merge server mode. It wraps
// a pass invoker to execute passes and reads status straight from disk.
type MergeService struct {
	invoker PassInvoker
	cfg     config.Settings
}

// NewMergeService creates a MergeService with the given invoker and config.
func NewMergeService(invoker PassInvoker, cfg config.Settings) *MergeService {
	return &MergeService{
		invoker: invoker,
		cfg:     cfg,
	}
}

// RunPass executes a single merge pass and returns its summary.
func (s *MergeService) RunPass(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ RunPassInput,
) (*mcp.CallToolResult, RunPassOutput, error) {
	res, err := s.invoker.RunOnce(ctx)
	if errors.Is(err, supervise.ErrBusy) {
		return nil, RunPassOutput{
			Status:  "busy",
			Message: "a merge pass is already running",
		}, nil
	}
	if err != nil {
		return nil, RunPassOutput{
			Status:  "failed",
			Message: err.Error(),
		}, nil
	}

	return nil, RunPassOutput{
		PassID:       res.ID,
		Status:       "completed",
		Candidates:   res.Candidates,
		Merged:       res.Succeeded,
		Failed:       res.Failed,
		Skipped:      res.Skipped,
		Recovered:    res.Recovered,
		ArtifactPath: s.cfg.ArtifactPath(),
	}, nil
}

// GetStatus reports the current merge state: candidates and their outcomes,
// plus what the artifact on disk claims.
func (s *MergeService) GetStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ GetStatusInput,
) (*mcp.CallToolResult, GetStatusOutput, error) {
	rep, err := status.Collect(s.cfg)
	if err != nil {
		return nil, GetStatusOutput{}, fmt.Errorf("collect status: %w", err)
	}

	files := make([]FileOutcome, 0, len(rep.Files))
	for _, f := range rep.Files {
		files = append(files, FileOutcome{Name: f.Name, Outcome: f.Outcome})
	}

	return nil, GetStatusOutput{
		InputDir:       rep.InputDir,
		ArtifactPath:   rep.ArtifactPath,
		ArtifactExists: rep.ArtifactExists,
		LastMerged:     rep.LastMerged,
		Pending:        rep.Pending,
		Succeeded:      rep.Succeeded,
		Failed:         rep.Failed,
		Files:          files,
	}, nil
}

// ListProcessed returns the ledger rows, oldest first, optionally trimmed
// to the most recent limit rows.
func (s *MergeService) ListProcessed(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListProcessedInput,
) (*mcp.CallToolResult, ListProcessedOutput, error) {
	if input.Limit < 0 {
		return nil, ListProcessedOutput{}, fmt.Errorf("limit must be non-negative, got %d", input.Limit)
	}

	led := ledger.New(s.cfg.ProcessedFile)
	entries, err := led.Entries()
	if err != nil {
		return nil, ListProcessedOutput{}, fmt.Errorf("read ledger: %w", err)
	}

	total := len(entries)
	if input.Limit > 0 && len(entries) > input.Limit {
		entries = entries[len(entries)-input.Limit:]
	}

	rows := make([]FileOutcome, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, FileOutcome{Name: e.Filename, Outcome: string(e.Outcome)})
	}

	return nil, ListProcessedOutput{Entries: rows, Total: total}, nil
}
