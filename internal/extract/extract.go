// Package extract pulls body content out of source documents for merging.
// Two strategies exist: splicing carries raw body nodes verbatim, structural
// copy rebuilds paragraphs from their parsed text and formatting. Both
// operate on one source document at a time and never modify it.
package extract

import (
	"fmt"

	"github.com/rameshbaboov/docmerger/internal/docx"
)

// DocumentReadError wraps a failure to open or parse one source document.
// It is scoped to that document: the pass records the failure and moves on.
type DocumentReadError struct {
	Path string
	Err  error
}

func (e *DocumentReadError) Error() string {
	return fmt.Sprintf("extract: %s: %v", e.Path, e.Err)
}

func (e *DocumentReadError) Unwrap() error { return e.Err }

// Strategy names an extraction behavior.
type Strategy string

const (
	// StrategySplice carries each body block's raw XML into the artifact
	// unchanged. Highest fidelity for self-contained content; content that
	// depends on per-document relationships (images, hyperlink targets)
	// loses those references.
	StrategySplice Strategy = "splice"
	// StrategyStructural rebuilds paragraphs from parsed text, run
	// formatting, and alignment. Produces clean output independent of the
	// source document's internals at the cost of dropping anything the
	// paragraph model does not carry.
	StrategyStructural Strategy = "structural"
)

// Extractor reads the mergeable body blocks of the document at path.
type Extractor interface {
	Strategy() Strategy
	Extract(path string) ([]docx.Block, error)
}

// ForStrategy returns the extractor implementing the named strategy.
func ForStrategy(s Strategy) (Extractor, error) {
	switch s {
	case StrategySplice:
		return &SpliceExtractor{}, nil
	case StrategyStructural:
		return &StructuralExtractor{}, nil
	default:
		return nil, fmt.Errorf("extract: unknown strategy %q", s)
	}
}

// ---------------------------------------------------------------------------
// Splice
// ---------------------------------------------------------------------------

// Compile-time assertion: *SpliceExtractor satisfies Extractor.
var _ Extractor = (*SpliceExtractor)(nil)

// SpliceExtractor returns body blocks verbatim, section properties excluded.
type SpliceExtractor struct{}

// Strategy identifies this extractor.
func (*SpliceExtractor) Strategy() Strategy { return StrategySplice }

// Extract opens the document at path and returns its raw body blocks.
func (*SpliceExtractor) Extract(path string) ([]docx.Block, error) {
	doc, err := docx.Open(path)
	if err != nil {
		return nil, &DocumentReadError{Path: path, Err: err}
	}
	return doc.Blocks(), nil
}

// ---------------------------------------------------------------------------
// Structural copy
// ---------------------------------------------------------------------------

// Compile-time assertion: *StructuralExtractor satisfies Extractor.
var _ Extractor = (*StructuralExtractor)(nil)

// StructuralExtractor rebuilds paragraph content from the parsed model.
// All rebuilt paragraphs come first, then each table verbatim preceded by an
// empty spacing paragraph. Body blocks that are neither paragraphs nor
// tables are dropped.
type StructuralExtractor struct{}

// Strategy identifies this extractor.
func (*StructuralExtractor) Strategy() Strategy { return StrategyStructural }

// Extract opens the document at path and returns rebuilt content blocks.
func (*StructuralExtractor) Extract(path string) ([]docx.Block, error) {
	doc, err := docx.Open(path)
	if err != nil {
		return nil, &DocumentReadError{Path: path, Err: err}
	}

	var out []docx.Block
	for _, b := range doc.Blocks() {
		if b.Kind != docx.BlockParagraph {
			continue
		}
		para, err := docx.ParseParagraph(b)
		if err != nil {
			return nil, &DocumentReadError{Path: path, Err: err}
		}
		out = append(out, para.Build())
	}
	for _, b := range doc.Blocks() {
		if b.Kind != docx.BlockTable {
			continue
		}
		out = append(out, docx.Paragraph{}.Build(), b)
	}
	return out, nil
}
