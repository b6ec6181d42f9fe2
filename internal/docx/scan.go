package docx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// bodyLayout is the result of splitting a main document part into the bytes
// before the body content, the body's block children, the trailing section
// properties, and the bytes after the body.
type bodyLayout struct {
	pre    []byte // through the end of the <w:body> start tag
	blocks []Block
	sectPr []byte // trailing w:sectPr element, nil if absent
	post   []byte // from </w:body> to end of part
}

// splitBody scans a main document part and records the byte span of every
// direct child of w:body. Spans are slices of the input, so block content is
// carried without re-encoding. The decoder's raw token stream is used because
// isolated parts reference namespace prefixes bound on the root element of
// other producers' documents; raw tokens leave prefixes untouched.
func splitBody(part []byte) (bodyLayout, error) {
	var layout bodyLayout
	dec := xml.NewDecoder(bytes.NewReader(part))

	depth := 0
	bodyDepth := -1
	inBody := false
	bodyOpen := int64(-1)
	bodyClose := int64(-1)
	var childStart int64
	var childKind BlockKind

	for {
		offset := dec.InputOffset()
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return layout, fmt.Errorf("docx: scan document part: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case !inBody && depth == 2 && t.Name.Local == "body":
				inBody = true
				bodyDepth = depth
				bodyOpen = dec.InputOffset()
			case inBody && depth == bodyDepth+1:
				childStart = offset
				childKind = kindForName(t.Name.Local)
			}
		case xml.EndElement:
			switch {
			case inBody && depth == bodyDepth+1:
				raw := part[childStart:dec.InputOffset()]
				if t.Name.Local == "sectPr" {
					layout.sectPr = raw
				} else {
					layout.blocks = append(layout.blocks, Block{Kind: childKind, Raw: raw})
				}
			case inBody && depth == bodyDepth && t.Name.Local == "body":
				inBody = false
				bodyClose = offset
			}
			depth--
		}
	}

	if bodyOpen < 0 || bodyClose < 0 {
		return layout, fmt.Errorf("docx: document part has no body element")
	}
	layout.pre = part[:bodyOpen]
	layout.post = part[bodyClose:]
	return layout, nil
}

// kindForName maps a body child's local element name to its block kind.
func kindForName(local string) BlockKind {
	switch local {
	case "p":
		return BlockParagraph
	case "tbl":
		return BlockTable
	default:
		return BlockOther
	}
}

// assemble rebuilds the main document part from the layout and the current
// block list. Inter-block whitespace from the original part is dropped; it is
// not significant at body level.
func (l *bodyLayout) assemble(blocks []Block) []byte {
	size := len(l.pre) + len(l.sectPr) + len(l.post)
	for _, b := range blocks {
		size += len(b.Raw)
	}
	buf := bytes.NewBuffer(make([]byte, 0, size))
	buf.Write(l.pre)
	for _, b := range blocks {
		buf.Write(b.Raw)
	}
	buf.Write(l.sectPr)
	buf.Write(l.post)
	return buf.Bytes()
}
