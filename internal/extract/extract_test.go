package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rameshbaboov/docmerger/internal/docx"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const rawTable = `<w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`

// writeFixture saves a document holding the given blocks and returns its path.
func writeFixture(t *testing.T, dir, name string, blocks ...docx.Block) string {
	t.Helper()
	d := docx.New()
	d.AppendBlocks(blocks)
	path := filepath.Join(dir, name)
	require.NoError(t, d.Save(path))
	return path
}

func para(runs ...docx.Run) docx.Block {
	return docx.Paragraph{Runs: runs}.Build()
}

// ---------------------------------------------------------------------------
// Strategy selection
// ---------------------------------------------------------------------------

func TestForStrategy(t *testing.T) {
	splice, err := ForStrategy(StrategySplice)
	require.NoError(t, err)
	assert.Equal(t, StrategySplice, splice.Strategy())

	structural, err := ForStrategy(StrategyStructural)
	require.NoError(t, err)
	assert.Equal(t, StrategyStructural, structural.Strategy())

	_, err = ForStrategy("verbatim")
	assert.ErrorContains(t, err, "unknown strategy")
}

// ---------------------------------------------------------------------------
// Splice
// ---------------------------------------------------------------------------

func TestSplice_CarriesRawBlocks(t *testing.T) {
	dir := t.TempDir()
	styled := docx.Block{Kind: docx.BlockParagraph, Raw: []byte(`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>title</w:t></w:r></w:p>`)}
	table := docx.Block{Kind: docx.BlockTable, Raw: []byte(rawTable)}
	path := writeFixture(t, dir, "in.docx", styled, table)

	blocks, err := (&SpliceExtractor{}).Extract(path)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, string(styled.Raw), string(blocks[0].Raw))
	assert.Equal(t, string(table.Raw), string(blocks[1].Raw))
}

func TestSplice_UnreadableDocumentIsDocumentReadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))

	_, err := (&SpliceExtractor{}).Extract(path)
	require.Error(t, err)

	var readErr *DocumentReadError
	require.True(t, errors.As(err, &readErr), "want *DocumentReadError, got %T", err)
	assert.Equal(t, path, readErr.Path)
}

func TestSplice_MissingFileIsDocumentReadError(t *testing.T) {
	_, err := (&SpliceExtractor{}).Extract(filepath.Join(t.TempDir(), "absent.docx"))

	var readErr *DocumentReadError
	assert.True(t, errors.As(err, &readErr))
}

// ---------------------------------------------------------------------------
// Structural copy
// ---------------------------------------------------------------------------

func TestStructural_RebuildsRunFormatting(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "in.docx",
		para(docx.Run{Text: "bold", Bold: true, SizeHalfPoints: 28}, docx.Run{Text: " plain"}),
	)

	blocks, err := (&StructuralExtractor{}).Extract(path)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	got, err := docx.ParseParagraph(blocks[0])
	require.NoError(t, err)
	require.Len(t, got.Runs, 2)
	assert.True(t, got.Runs[0].Bold)
	assert.Equal(t, 28, got.Runs[0].SizeHalfPoints)
	assert.Equal(t, "bold plain", got.Text())
}

func TestStructural_DropsUnmodeledParagraphInternals(t *testing.T) {
	dir := t.TempDir()
	styled := docx.Block{Kind: docx.BlockParagraph, Raw: []byte(`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>title</w:t></w:r></w:p>`)}
	path := writeFixture(t, dir, "in.docx", styled)

	blocks, err := (&StructuralExtractor{}).Extract(path)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.NotContains(t, string(blocks[0].Raw), "pStyle")

	got, err := docx.ParseParagraph(blocks[0])
	require.NoError(t, err)
	assert.Equal(t, "title", got.Text())
}

func TestStructural_TablesFollowParagraphs(t *testing.T) {
	dir := t.TempDir()
	table := docx.Block{Kind: docx.BlockTable, Raw: []byte(rawTable)}
	path := writeFixture(t, dir, "in.docx",
		para(docx.Run{Text: "before"}),
		table,
		para(docx.Run{Text: "after"}),
	)

	blocks, err := (&StructuralExtractor{}).Extract(path)
	require.NoError(t, err)
	require.Len(t, blocks, 4, "two paragraphs, then spacer + table")

	first, err := docx.ParseParagraph(blocks[0])
	require.NoError(t, err)
	second, err := docx.ParseParagraph(blocks[1])
	require.NoError(t, err)
	assert.Equal(t, "before", first.Text())
	assert.Equal(t, "after", second.Text())

	spacer, err := docx.ParseParagraph(blocks[2])
	require.NoError(t, err)
	assert.Empty(t, spacer.Text())
	assert.Equal(t, docx.BlockTable, blocks[3].Kind)
	assert.Equal(t, rawTable, string(blocks[3].Raw))
}

func TestStructural_SkipsOtherBlockKinds(t *testing.T) {
	dir := t.TempDir()
	sdt := docx.Block{Kind: docx.BlockOther, Raw: []byte(`<w:sdt><w:sdtContent><w:p><w:r><w:t>control</w:t></w:r></w:p></w:sdtContent></w:sdt>`)}
	path := writeFixture(t, dir, "in.docx", para(docx.Run{Text: "kept"}), sdt)

	blocks, err := (&StructuralExtractor{}).Extract(path)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	got, err := docx.ParseParagraph(blocks[0])
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Text())
}
