package mcptools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rameshbaboov/docmerger/internal/config"
	"github.com/rameshbaboov/docmerger/internal/docx"
	"github.com/rameshbaboov/docmerger/internal/ledger"
	"github.com/rameshbaboov/docmerger/internal/merge"
	"github.com/rameshbaboov/docmerger/internal/supervise"
)

// mockInvoker is a test double for PassInvoker.
type mockInvoker struct {
	result *merge.PassResult
	err    error
}

func (m *mockInvoker) RunOnce(context.Context) (*merge.PassResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.InputDir = filepath.Join(root, "input_docs")
	cfg.OutputDir = filepath.Join(root, "merged_output")
	cfg.ProcessedFile = filepath.Join(root, "processed.csv")
	return cfg
}

func TestMergeService_RunPass(t *testing.T) {
	mock := &mockInvoker{result: &merge.PassResult{
		ID:         "pass-1",
		Candidates: 3,
		Succeeded:  2,
		Failed:     1,
		Recovered:  []string{"old.docx"},
	}}
	cfg := testSettings(t)
	svc := NewMergeService(mock, cfg)

	_, out, err := svc.RunPass(context.Background(), nil, RunPassInput{})
	require.NoError(t, err)
	assert.Equal(t, "completed", out.Status)
	assert.Equal(t, "pass-1", out.PassID)
	assert.Equal(t, 3, out.Candidates)
	assert.Equal(t, 2, out.Merged)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, []string{"old.docx"}, out.Recovered)
	assert.Equal(t, cfg.ArtifactPath(), out.ArtifactPath)
}

func TestMergeService_RunPass_Busy(t *testing.T) {
	mock := &mockInvoker{err: supervise.ErrBusy}
	svc := NewMergeService(mock, testSettings(t))

	_, out, err := svc.RunPass(context.Background(), nil, RunPassInput{})
	require.NoError(t, err)
	assert.Equal(t, "busy", out.Status)
	assert.Contains(t, out.Message, "already running")
}

func TestMergeService_RunPass_Failed(t *testing.T) {
	mock := &mockInvoker{err: errors.New("ledger unreadable")}
	svc := NewMergeService(mock, testSettings(t))

	_, out, err := svc.RunPass(context.Background(), nil, RunPassInput{})
	require.NoError(t, err)
	assert.Equal(t, "failed", out.Status)
	assert.Contains(t, out.Message, "ledger unreadable")
}

func TestMergeService_GetStatus_Empty(t *testing.T) {
	svc := NewMergeService(&mockInvoker{}, testSettings(t))

	_, out, err := svc.GetStatus(context.Background(), nil, GetStatusInput{})
	require.NoError(t, err)
	assert.False(t, out.ArtifactExists)
	assert.Empty(t, out.Files)
	assert.Zero(t, out.Pending)
}

func TestMergeService_GetStatus_ClassifiesFiles(t *testing.T) {
	cfg := testSettings(t)
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0o755))
	for _, name := range []string{"done.docx", "broken.docx", "new.docx"} {
		require.NoError(t, docx.New().Save(filepath.Join(cfg.InputDir, name)))
	}
	led := ledger.New(cfg.ProcessedFile)
	require.NoError(t, led.Record("done.docx", ledger.OutcomeSuccess))
	require.NoError(t, led.Record("broken.docx", ledger.OutcomeError))

	svc := NewMergeService(&mockInvoker{}, cfg)

	_, out, err := svc.GetStatus(context.Background(), nil, GetStatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Pending)
	assert.Equal(t, 1, out.Succeeded)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Files, 3)

	outcomes := make(map[string]string, len(out.Files))
	for _, f := range out.Files {
		outcomes[f.Name] = f.Outcome
	}
	assert.Equal(t, "success", outcomes["done.docx"])
	assert.Equal(t, "error", outcomes["broken.docx"])
	assert.Equal(t, "pending", outcomes["new.docx"])
}

func TestMergeService_ListProcessed(t *testing.T) {
	cfg := testSettings(t)
	led := ledger.New(cfg.ProcessedFile)
	require.NoError(t, led.Record("a.docx", ledger.OutcomeSuccess))
	require.NoError(t, led.Record("b.docx", ledger.OutcomeError))
	require.NoError(t, led.Record("c.docx", ledger.OutcomeSuccess))

	svc := NewMergeService(&mockInvoker{}, cfg)

	_, out, err := svc.ListProcessed(context.Background(), nil, ListProcessedInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Total)
	require.Len(t, out.Entries, 3)
	assert.Equal(t, "a.docx", out.Entries[0].Name)
	assert.Equal(t, "c.docx", out.Entries[2].Name)
}

func TestMergeService_ListProcessed_Limit(t *testing.T) {
	cfg := testSettings(t)
	led := ledger.New(cfg.ProcessedFile)
	require.NoError(t, led.Record("a.docx", ledger.OutcomeSuccess))
	require.NoError(t, led.Record("b.docx", ledger.OutcomeSuccess))
	require.NoError(t, led.Record("c.docx", ledger.OutcomeSuccess))

	svc := NewMergeService(&mockInvoker{}, cfg)

	_, out, err := svc.ListProcessed(context.Background(), nil, ListProcessedInput{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Total, "total reflects the whole ledger")
	require.Len(t, out.Entries, 2)
	assert.Equal(t, "b.docx", out.Entries[0].Name, "limit keeps the most recent rows")
	assert.Equal(t, "c.docx", out.Entries[1].Name)
}

func TestMergeService_ListProcessed_NegativeLimit(t *testing.T) {
	svc := NewMergeService(&mockInvoker{}, testSettings(t))

	_, _, err := svc.ListProcessed(context.Background(), nil, ListProcessedInput{Limit: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")
}

func TestMergeService_ListProcessed_EmptyLedger(t *testing.T) {
	svc := NewMergeService(&mockInvoker{}, testSettings(t))

	_, out, err := svc.ListProcessed(context.Background(), nil, ListProcessedInput{})
	require.NoError(t, err)
	assert.Zero(t, out.Total)
	assert.Empty(t, out.Entries)
}
