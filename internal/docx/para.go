package docx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Paragraph model
// ---------------------------------------------------------------------------

// Run is the text and direct character formatting of a single w:r element.
// SizeHalfPoints follows the wire unit of w:sz; zero means "not set".
type Run struct {
	Text           string
	Bold           bool
	Italic         bool
	Underline      bool
	Font           string
	SizeHalfPoints int
}

// Paragraph is the parsed view of a w:p element: its direct runs and its
// alignment. Runs nested inside hyperlinks or content controls are not part
// of this view.
type Paragraph struct {
	Alignment string // w:jc value, "" when unset
	Runs      []Run
}

// Text returns the concatenated text of all runs.
func (p Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// ParseParagraph extracts the paragraph model from a paragraph block. Tabs
// and line breaks inside runs are folded into the text as '\t' and '\n';
// Build converts them back into their element forms.
func ParseParagraph(b Block) (Paragraph, error) {
	var para Paragraph
	if b.Kind != BlockParagraph {
		return para, fmt.Errorf("docx: cannot parse %s block as paragraph", b.Kind)
	}

	dec := xml.NewDecoder(bytes.NewReader(b.Raw))
	depth := 0
	inPPr := false
	inRPr := false
	inText := false
	var cur Run
	var text strings.Builder

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return para, fmt.Errorf("docx: scan paragraph: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case depth == 2 && t.Name.Local == "pPr":
				inPPr = true
			case inPPr && t.Name.Local == "jc":
				para.Alignment = attrValue(t, "val")
			case depth == 2 && t.Name.Local == "r":
				cur = Run{}
				text.Reset()
			case depth == 3 && t.Name.Local == "rPr" && !inPPr:
				inRPr = true
			case inRPr && depth == 4:
				applyRunProperty(&cur, t)
			case depth == 3 && t.Name.Local == "t":
				inText = true
			case depth == 3 && t.Name.Local == "tab":
				text.WriteByte('\t')
			case depth == 3 && (t.Name.Local == "br" || t.Name.Local == "cr"):
				text.WriteByte('\n')
			}
		case xml.EndElement:
			switch {
			case inText && depth == 3 && t.Name.Local == "t":
				inText = false
			case inRPr && depth == 3 && t.Name.Local == "rPr":
				inRPr = false
			case inPPr && depth == 2 && t.Name.Local == "pPr":
				inPPr = false
			case depth == 2 && t.Name.Local == "r":
				cur.Text = text.String()
				para.Runs = append(para.Runs, cur)
			}
			depth--
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
	return para, nil
}

// applyRunProperty folds one rPr child into the run's formatting flags.
func applyRunProperty(r *Run, t xml.StartElement) {
	switch t.Name.Local {
	case "b":
		r.Bold = onOffValue(attrValue(t, "val"))
	case "i":
		r.Italic = onOffValue(attrValue(t, "val"))
	case "u":
		val := attrValue(t, "val")
		r.Underline = val != "none" && onOffValue(val)
	case "sz":
		if n, err := strconv.Atoi(attrValue(t, "val")); err == nil {
			r.SizeHalfPoints = n
		}
	case "rFonts":
		if f := attrValue(t, "ascii"); f != "" {
			r.Font = f
		}
	}
}

// attrValue returns the value of the attribute with the given local name.
func attrValue(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// onOffValue interprets an ST_OnOff attribute; absence means enabled.
func onOffValue(v string) bool {
	switch v {
	case "0", "false", "off":
		return false
	default:
		return true
	}
}

// ---------------------------------------------------------------------------
// Paragraph construction
// ---------------------------------------------------------------------------

// Build serializes the paragraph model into a fresh paragraph block.
func (p Paragraph) Build() Block {
	var buf bytes.Buffer
	buf.WriteString("<w:p>")
	if p.Alignment != "" {
		fmt.Fprintf(&buf, `<w:pPr><w:jc w:val="%s"/></w:pPr>`, escapeXML(p.Alignment))
	}
	for _, r := range p.Runs {
		writeRun(&buf, r)
	}
	buf.WriteString("</w:p>")
	return Block{Kind: BlockParagraph, Raw: buf.Bytes()}
}

func writeRun(buf *bytes.Buffer, r Run) {
	buf.WriteString("<w:r>")
	if r.Bold || r.Italic || r.Underline || r.Font != "" || r.SizeHalfPoints > 0 {
		buf.WriteString("<w:rPr>")
		if r.Font != "" {
			f := escapeXML(r.Font)
			fmt.Fprintf(buf, `<w:rFonts w:ascii="%s" w:hAnsi="%s"/>`, f, f)
		}
		if r.Bold {
			buf.WriteString("<w:b/>")
		}
		if r.Italic {
			buf.WriteString("<w:i/>")
		}
		if r.SizeHalfPoints > 0 {
			fmt.Fprintf(buf, `<w:sz w:val="%d"/><w:szCs w:val="%d"/>`, r.SizeHalfPoints, r.SizeHalfPoints)
		}
		if r.Underline {
			buf.WriteString(`<w:u w:val="single"/>`)
		}
		buf.WriteString("</w:rPr>")
	}
	writeRunText(buf, r.Text)
	buf.WriteString("</w:r>")
}

// writeRunText emits the run's text, converting '\t' back to w:tab and '\n'
// back to w:br elements.
func writeRunText(buf *bytes.Buffer, text string) {
	flush := func(seg string) {
		if seg == "" {
			return
		}
		fmt.Fprintf(buf, `<w:t xml:space="preserve">%s</w:t>`, escapeXML(seg))
	}
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\t':
			flush(text[start:i])
			buf.WriteString("<w:tab/>")
			start = i + 1
		case '\n':
			flush(text[start:i])
			buf.WriteString("<w:br/>")
			start = i + 1
		}
	}
	flush(text[start:])
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	// EscapeText only fails on a failing writer; bytes.Buffer never does.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
