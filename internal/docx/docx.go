// Package docx reads and writes OOXML word-processing packages without an
// external Office dependency. It understands just enough of the format for
// merging: the zip container, the main document part, body-level blocks
// (paragraphs and tables), run-level formatting, and the custom document
// properties part.
//
// Body blocks are kept as raw XML byte slices taken verbatim from the source
// part, so content that round-trips through this package is not re-encoded.
// Anything the package does not model (headers, footers, styles, embedded
// media) is preserved untouched inside the container.
package docx

import "fmt"

// BlockKind classifies a body-level block element.
type BlockKind int

const (
	// BlockParagraph is a w:p element.
	BlockParagraph BlockKind = iota
	// BlockTable is a w:tbl element.
	BlockTable
	// BlockOther is any other body-level element (bookmarks, sdt wrappers,
	// alternate content). These are carried verbatim when splicing.
	BlockOther
)

// String returns a short label for the block kind.
func (k BlockKind) String() string {
	switch k {
	case BlockParagraph:
		return "paragraph"
	case BlockTable:
		return "table"
	case BlockOther:
		return "other"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Block is one direct child of the document body, held as raw XML. The Raw
// bytes are a complete element and must not be mutated after construction.
type Block struct {
	Kind BlockKind
	Raw  []byte
}

// pageBreakXML is the paragraph a word processor inserts for a manual page
// break: a single run whose only content is a page-type break.
const pageBreakXML = `<w:p><w:r><w:br w:type="page"/></w:r></w:p>`

// PageBreak returns a paragraph block containing a single page break.
func PageBreak() Block {
	return Block{Kind: BlockParagraph, Raw: []byte(pageBreakXML)}
}
