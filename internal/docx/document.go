package docx

import (
	"fmt"
	"io"
	"os"
)

// Document is an in-memory word-processing package. Mutations touch only the
// body block list and the merge stamp; every other part round-trips verbatim.
type Document struct {
	c        *container
	mainPart string
	layout   bodyLayout
	blocks   []Block

	lastMerged    string
	stampModified bool
}

// New returns an empty document built from the package's minimal template:
// a body with no content blocks and default page geometry.
func New() *Document {
	c := &container{parts: make(map[string][]byte, 3)}
	c.setPart(contentTypesPart, []byte(templateContentTypes))
	c.setPart(packageRelsPart, []byte(templateRels))
	c.setPart("word/document.xml", []byte(templateDocument))

	layout, err := splitBody([]byte(templateDocument))
	if err != nil {
		// The template is a compile-time constant; failing to scan it is a bug.
		panic(fmt.Sprintf("docx: template does not scan: %v", err))
	}
	return &Document{c: c, mainPart: "word/document.xml", layout: layout}
}

// Open reads the package at path and scans its main document part.
func Open(path string) (*Document, error) {
	c, err := readContainer(path)
	if err != nil {
		return nil, err
	}
	mainPart, err := c.mainPartName()
	if err != nil {
		return nil, err
	}
	layout, err := splitBody(c.parts[mainPart])
	if err != nil {
		return nil, err
	}
	d := &Document{c: c, mainPart: mainPart, layout: layout, blocks: layout.blocks}
	d.lastMerged = readStamp(c)
	return d, nil
}

// Blocks returns the document's body content blocks in order, excluding the
// trailing section properties. The returned slice must not be mutated.
func (d *Document) Blocks() []Block {
	return d.blocks
}

// HasContent reports whether the body holds at least one content block.
func (d *Document) HasContent() bool {
	return len(d.blocks) > 0
}

// AppendBlock adds one block to the end of the body, before the section
// properties.
func (d *Document) AppendBlock(b Block) {
	d.blocks = append(d.blocks, b)
}

// AppendBlocks adds blocks to the end of the body in order.
func (d *Document) AppendBlocks(blocks []Block) {
	d.blocks = append(d.blocks, blocks...)
}

// LastMerged returns the name recorded by the most recent SetLastMerged that
// was persisted with the document, or "" if the document carries no stamp.
func (d *Document) LastMerged() string {
	return d.lastMerged
}

// SetLastMerged records the given source name in the document's custom
// properties. The stamp is written out as part of Save, inside the same
// package write as the content it describes.
func (d *Document) SetLastMerged(name string) {
	d.lastMerged = name
	d.stampModified = true
}

// Save writes the document to path, replacing any existing file. The write is
// not atomic; callers that need durability write to a temporary file and
// rename.
func (d *Document) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("docx: create %s: %w", path, err)
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("docx: close %s: %w", path, err)
	}
	return nil
}

// Write serializes the document package to w.
func (d *Document) Write(w io.Writer) error {
	d.c.setPart(d.mainPart, d.layout.assemble(d.blocks))
	if d.stampModified {
		if err := writeStamp(d.c, d.lastMerged); err != nil {
			return err
		}
	}
	return d.c.writeTo(w)
}
