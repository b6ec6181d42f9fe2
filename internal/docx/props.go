package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// ---------------------------------------------------------------------------
// Merge stamp (custom document properties)
// ---------------------------------------------------------------------------

// The custom properties part carries the name of the last source document
// whose content was saved into this package. Because the property travels
// inside the same package write as the content, the stamp and the content can
// never disagree on disk.
const (
	lastMergedProperty = "docmergerLastSource"

	customPropsContentType = "application/vnd.openxmlformats-officedocument.custom-properties+xml"
	customPropsRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/custom-properties"
	customPropsNS          = "http://schemas.openxmlformats.org/officeDocument/2006/custom-properties"
	vtNS                   = "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes"

	// Fixed fmtid mandated for user-defined properties.
	userPropsFmtid = "{D5CDD505-2E9C-101B-9397-08002B2CF9AE}"
)

type customProperty struct {
	Fmtid  string  `xml:"fmtid,attr"`
	PID    int     `xml:"pid,attr"`
	Name   string  `xml:"name,attr"`
	Lpwstr *string `xml:"lpwstr"`
	Inner  string  `xml:",innerxml"`
}

type customProperties struct {
	Props []customProperty `xml:"property"`
}

// readStamp extracts the last-merged property from the container, if present.
// A missing or unreadable properties part reads as no stamp; recovery from a
// stamp is best effort and must not block opening the document.
func readStamp(c *container) string {
	data, ok := c.parts[customPropsPart]
	if !ok {
		return ""
	}
	var props customProperties
	if err := xml.Unmarshal(data, &props); err != nil {
		return ""
	}
	for _, p := range props.Props {
		if p.Name == lastMergedProperty && p.Lpwstr != nil {
			return *p.Lpwstr
		}
	}
	return ""
}

// writeStamp upserts the last-merged property into the custom properties
// part, creating the part together with its content-type override and package
// relationship when absent. Properties other than ours keep their raw inner
// XML untouched.
func writeStamp(c *container, value string) error {
	var props customProperties
	if data, ok := c.parts[customPropsPart]; ok {
		if err := xml.Unmarshal(data, &props); err != nil {
			return fmt.Errorf("docx: parse %s: %w", customPropsPart, err)
		}
	}

	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(value)); err != nil {
		return fmt.Errorf("docx: escape property value: %w", err)
	}
	inner := fmt.Sprintf("<vt:lpwstr>%s</vt:lpwstr>", escaped.String())

	updated := false
	maxPID := 1 // property ids start at 2
	for i := range props.Props {
		if props.Props[i].PID > maxPID {
			maxPID = props.Props[i].PID
		}
		if props.Props[i].Name == lastMergedProperty {
			props.Props[i].Inner = inner
			updated = true
		}
	}
	if !updated {
		props.Props = append(props.Props, customProperty{
			Fmtid: userPropsFmtid,
			PID:   maxPID + 1,
			Name:  lastMergedProperty,
			Inner: inner,
		})
	}

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	buf.WriteString("\n")
	fmt.Fprintf(&buf, `<Properties xmlns="%s" xmlns:vt="%s">`, customPropsNS, vtNS)
	for _, p := range props.Props {
		var name bytes.Buffer
		if err := xml.EscapeText(&name, []byte(p.Name)); err != nil {
			return fmt.Errorf("docx: escape property name: %w", err)
		}
		fmt.Fprintf(&buf, `<property fmtid="%s" pid="%d" name="%s">%s</property>`,
			p.Fmtid, p.PID, name.String(), p.Inner)
	}
	buf.WriteString(`</Properties>`)
	c.setPart(customPropsPart, buf.Bytes())

	if err := c.ensureContentTypeOverride(customPropsPart, customPropsContentType); err != nil {
		return err
	}
	return c.ensurePackageRel(customPropsRelType, customPropsPart)
}
