package merge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rameshbaboov/docmerger/internal/artifact"
	"github.com/rameshbaboov/docmerger/internal/docx"
	"github.com/rameshbaboov/docmerger/internal/extract"
	"github.com/rameshbaboov/docmerger/internal/ledger"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const pageBreakMark = "[page break]"

type fixture struct {
	t        *testing.T
	inputDir string
	led      *ledger.Ledger
	store    *artifact.Store
	hub      *Hub
	driver   *Driver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		t:        t,
		inputDir: filepath.Join(root, "input_docs"),
		led:      ledger.New(filepath.Join(root, "processed.csv")),
		store:    artifact.NewStore(filepath.Join(root, "merged_output", "merged.docx")),
		hub:      NewHub(),
	}
	ex, err := extract.ForStrategy(extract.StrategySplice)
	require.NoError(t, err)
	f.driver = NewDriver(Config{InputDir: f.inputDir, Extension: ".docx"}, f.led, f.store, ex, f.hub, zap.NewNop())
	return f
}

// addDoc writes a valid source document with one paragraph per text.
func (f *fixture) addDoc(name string, texts ...string) {
	f.t.Helper()
	require.NoError(f.t, os.MkdirAll(f.inputDir, 0o755))
	d := docx.New()
	for _, s := range texts {
		d.AppendBlock(docx.Paragraph{Runs: []docx.Run{{Text: s}}}.Build())
	}
	require.NoError(f.t, d.Save(filepath.Join(f.inputDir, name)))
}

// addJunk writes a file that is not a valid document.
func (f *fixture) addJunk(name string) {
	f.t.Helper()
	require.NoError(f.t, os.MkdirAll(f.inputDir, 0o755))
	require.NoError(f.t, os.WriteFile(filepath.Join(f.inputDir, name), []byte("not a document"), 0o644))
}

func (f *fixture) run() *PassResult {
	f.t.Helper()
	res, err := f.driver.RunPass(context.Background())
	require.NoError(f.t, err)
	return res
}

// artifactTexts renders the persisted artifact as a flat list: paragraph
// texts in order, with page breaks marked.
func (f *fixture) artifactTexts() []string {
	f.t.Helper()
	a, err := f.store.Open()
	require.NoError(f.t, err)
	var out []string
	for _, b := range a.Blocks() {
		if strings.Contains(string(b.Raw), `w:type="page"`) {
			out = append(out, pageBreakMark)
			continue
		}
		p, err := docx.ParseParagraph(b)
		require.NoError(f.t, err)
		out = append(out, p.Text())
	}
	return out
}

func (f *fixture) ledgerEntries() []ledger.Entry {
	f.t.Helper()
	entries, err := f.led.Entries()
	require.NoError(f.t, err)
	return entries
}

// ---------------------------------------------------------------------------
// Core merge behavior
// ---------------------------------------------------------------------------

func TestRunPass_TwoPassScenario(t *testing.T) {
	f := newFixture(t)
	f.addDoc("a.docx", "alpha")
	f.addDoc("b.docx", "beta")

	first := f.run()
	assert.Equal(t, 2, first.Candidates)
	assert.Equal(t, 2, first.Succeeded)
	assert.Equal(t, []string{"alpha", pageBreakMark, "beta"}, f.artifactTexts())

	entries := f.ledgerEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.Entry{Filename: "a.docx", Outcome: ledger.OutcomeSuccess}, entries[0])
	assert.Equal(t, ledger.Entry{Filename: "b.docx", Outcome: ledger.OutcomeSuccess}, entries[1])

	f.addDoc("c.docx", "gamma")

	second := f.run()
	assert.Equal(t, 3, second.Candidates)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 1, second.Succeeded)
	assert.Equal(t, []string{"alpha", pageBreakMark, "beta", pageBreakMark, "gamma"}, f.artifactTexts())
	assert.Len(t, f.ledgerEntries(), 3)
}

func TestRunPass_OrderIsLexicographicNotArrival(t *testing.T) {
	f := newFixture(t)
	f.addDoc("b.docx", "second")
	f.addDoc("a.docx", "first")

	f.run()

	assert.Equal(t, []string{"first", pageBreakMark, "second"}, f.artifactTexts())
	entries := f.ledgerEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a.docx", entries[0].Filename)
}

func TestRunPass_NoSeparatorBeforeFirstContent(t *testing.T) {
	f := newFixture(t)
	f.addDoc("only.docx", "body")

	f.run()

	assert.Equal(t, []string{"body"}, f.artifactTexts())
}

func TestRunPass_IgnoresNonMatchingEntries(t *testing.T) {
	f := newFixture(t)
	f.addDoc("a.docx", "alpha")
	require.NoError(t, os.WriteFile(filepath.Join(f.inputDir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(f.inputDir, "archive.docx"), 0o755))

	res := f.run()

	assert.Equal(t, 1, res.Candidates, "directories and other extensions are not candidates")
	assert.Equal(t, []string{"alpha"}, f.artifactTexts())
}

func TestRunPass_CreatesMissingInputDir(t *testing.T) {
	f := newFixture(t)

	res := f.run()

	assert.Equal(t, 0, res.Candidates)
	info, err := os.Stat(f.inputDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// ---------------------------------------------------------------------------
// At-most-once
// ---------------------------------------------------------------------------

func TestRunPass_SkipsRecordedOutcomes(t *testing.T) {
	f := newFixture(t)
	f.addDoc("a.docx", "alpha")
	f.addDoc("b.docx", "beta")
	f.addDoc("c.docx", "gamma")
	require.NoError(t, f.led.Record("a.docx", ledger.OutcomeSuccess))
	require.NoError(t, f.led.Record("b.docx", ledger.OutcomeError))

	res := f.run()

	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, []string{"gamma"}, f.artifactTexts())
}

func TestRunPass_SecondRunIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.addDoc("a.docx", "alpha")
	f.addDoc("b.docx", "beta")
	f.run()
	before := f.artifactTexts()

	res := f.run()

	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, before, f.artifactTexts())
	assert.Len(t, f.ledgerEntries(), 2)
}

func TestRunPass_ErrorOutcomesNeverRetried(t *testing.T) {
	f := newFixture(t)
	f.addJunk("b.docx")
	f.run()

	// The file becoming readable later must not trigger a retry.
	f.addDoc("b.docx", "now valid")

	res := f.run()

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Processed)
	assert.Empty(t, f.artifactTexts())
}

// ---------------------------------------------------------------------------
// Failure isolation
// ---------------------------------------------------------------------------

func TestRunPass_UnreadableDocumentIsolated(t *testing.T) {
	f := newFixture(t)
	f.addDoc("a.docx", "alpha")
	f.addJunk("b.docx")
	f.addDoc("c.docx", "gamma")

	res := f.run()

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"alpha", pageBreakMark, "gamma"}, f.artifactTexts())

	entries := f.ledgerEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, ledger.OutcomeError, entries[1].Outcome)

	require.Len(t, res.Files, 3)
	assert.NotEmpty(t, res.Files[1].Error)
}

func TestRunPass_FirstDocumentFailureLeavesNoLeadingSeparator(t *testing.T) {
	f := newFixture(t)
	f.addJunk("a.docx")
	f.addDoc("b.docx", "beta")

	f.run()

	assert.Equal(t, []string{"beta"}, f.artifactTexts())
}

// ---------------------------------------------------------------------------
// Fatal conditions
// ---------------------------------------------------------------------------

func TestRunPass_UnreadableLedgerAborts(t *testing.T) {
	root := t.TempDir()
	ledgerPath := filepath.Join(root, "processed.csv")
	require.NoError(t, os.MkdirAll(ledgerPath, 0o755)) // a directory, not a file

	f := &fixture{
		t:        t,
		inputDir: filepath.Join(root, "input_docs"),
		led:      ledger.New(ledgerPath),
		store:    artifact.NewStore(filepath.Join(root, "merged_output", "merged.docx")),
	}
	ex, err := extract.ForStrategy(extract.StrategySplice)
	require.NoError(t, err)
	f.driver = NewDriver(Config{InputDir: f.inputDir, Extension: ".docx"}, f.led, f.store, ex, nil, zap.NewNop())
	f.addDoc("a.docx", "alpha")

	_, err = f.driver.RunPass(context.Background())
	require.Error(t, err)

	var ioErr *ledger.IOError
	assert.ErrorAs(t, err, &ioErr)
	assert.False(t, f.store.Exists(), "no artifact may be written when the ledger is unusable")
}

func TestRunPass_InvalidArtifactAborts(t *testing.T) {
	f := newFixture(t)
	f.addDoc("a.docx", "alpha")
	require.NoError(t, os.MkdirAll(filepath.Dir(f.store.Path()), 0o755))
	require.NoError(t, os.WriteFile(f.store.Path(), []byte("corrupt"), 0o644))

	_, err := f.driver.RunPass(context.Background())
	require.Error(t, err)

	var storageErr *artifact.StorageError
	assert.ErrorAs(t, err, &storageErr)
	assert.Empty(t, f.ledgerEntries(), "no outcome may be recorded when the artifact is unusable")
}

func TestRunPass_CancelledContext(t *testing.T) {
	f := newFixture(t)
	f.addDoc("a.docx", "alpha")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.driver.RunPass(ctx)
	require.Error(t, err)
	assert.Empty(t, f.ledgerEntries())
}

// ---------------------------------------------------------------------------
// Crash recovery
// ---------------------------------------------------------------------------

func TestRunPass_RecoversPersistedButUnrecordedDocument(t *testing.T) {
	f := newFixture(t)
	f.addDoc("a.docx", "alpha")

	// Replay a run that persisted a.docx and stopped before the ledger row.
	a, err := f.store.Open()
	require.NoError(t, err)
	blocks, err := (&extract.SpliceExtractor{}).Extract(filepath.Join(f.inputDir, "a.docx"))
	require.NoError(t, err)
	a.AppendBlocks(blocks)
	require.NoError(t, a.Persist("a.docx"))

	res := f.run()

	assert.Equal(t, []string{"a.docx"}, res.Recovered)
	assert.Equal(t, 1, res.Skipped, "recovered document must not be merged again")
	assert.Equal(t, []string{"alpha"}, f.artifactTexts(), "content must appear exactly once")

	entries := f.ledgerEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.Entry{Filename: "a.docx", Outcome: ledger.OutcomeSuccess}, entries[0])
}

func TestRunPass_NoRecoveryWhenStampMatchesLedger(t *testing.T) {
	f := newFixture(t)
	f.addDoc("a.docx", "alpha")
	f.run()

	res := f.run()

	assert.Empty(t, res.Recovered)
	assert.Len(t, f.ledgerEntries(), 1)
}

// ---------------------------------------------------------------------------
// Progress and history
// ---------------------------------------------------------------------------

func TestRunPass_EmitsProgressEvents(t *testing.T) {
	f := newFixture(t)
	f.addDoc("a.docx", "alpha")
	f.addJunk("b.docx")

	ch, cancel := f.hub.Subscribe()
	defer cancel()

	res := f.run()

	var events []Event
	for len(ch) > 0 {
		events = append(events, <-ch)
	}
	require.Len(t, events, 4)
	assert.Equal(t, EventPassStarted, events[0].Kind)
	assert.Equal(t, EventFileProcessed, events[1].Kind)
	assert.Equal(t, ledger.OutcomeSuccess, events[1].Outcome)
	assert.Equal(t, EventFileProcessed, events[2].Kind)
	assert.Equal(t, ledger.OutcomeError, events[2].Outcome)
	assert.NotEmpty(t, events[2].Error)
	assert.Equal(t, EventPassFinished, events[3].Kind)
	for _, ev := range events {
		assert.Equal(t, res.ID, ev.PassID)
	}
}

func TestRunPass_HistoryKeepsNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.addDoc("a.docx", "alpha")
	first := f.run()
	f.addDoc("b.docx", "beta")
	second := f.run()

	require.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	recent := f.driver.History().Recent(10)
	require.Len(t, recent, 2)
	assert.Equal(t, second.ID, recent[0].ID)
	assert.Equal(t, first.ID, recent[1].ID)

	last := f.driver.History().Last()
	require.NotNil(t, last)
	assert.Equal(t, second.ID, last.ID)
}
