package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ---------------------------------------------------------------------------
// Zip container
// ---------------------------------------------------------------------------

// Well-known part names inside the package.
const (
	contentTypesPart = "[Content_Types].xml"
	packageRelsPart  = "_rels/.rels"
	customPropsPart  = "docProps/custom.xml"
)

const officeDocumentRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"

// container is the raw zip payload of a package: every part's bytes plus the
// original entry order, which is preserved on write.
type container struct {
	order []string
	parts map[string][]byte
}

// readContainer loads every part of the zip archive at path into memory.
func readContainer(path string) (*container, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("docx: open package %s: %w", path, err)
	}
	defer zr.Close()

	c := &container{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("docx: open part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("docx: read part %s: %w", f.Name, err)
		}
		c.order = append(c.order, f.Name)
		c.parts[f.Name] = data
	}
	return c, nil
}

// writeTo serializes the container as a zip archive in original entry order.
func (c *container) writeTo(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range c.order {
		pw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("docx: create part %s: %w", name, err)
		}
		if _, err := pw.Write(c.parts[name]); err != nil {
			return fmt.Errorf("docx: write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("docx: finalize package: %w", err)
	}
	return nil
}

// setPart replaces a part's bytes, appending it to the entry order if new.
func (c *container) setPart(name string, data []byte) {
	if _, ok := c.parts[name]; !ok {
		c.order = append(c.order, name)
	}
	c.parts[name] = data
}

// ---------------------------------------------------------------------------
// Package relationships
// ---------------------------------------------------------------------------

type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

type relationships struct {
	Rels []relationship `xml:"Relationship"`
}

// mainPartName resolves the name of the main document part from the package
// relationships, e.g. "word/document.xml".
func (c *container) mainPartName() (string, error) {
	data, ok := c.parts[packageRelsPart]
	if !ok {
		return "", fmt.Errorf("docx: package has no %s", packageRelsPart)
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return "", fmt.Errorf("docx: parse %s: %w", packageRelsPart, err)
	}
	for _, rel := range rels.Rels {
		if rel.Type == officeDocumentRelType {
			name := strings.TrimPrefix(rel.Target, "/")
			if _, ok := c.parts[name]; !ok {
				return "", fmt.Errorf("docx: main document part %s missing from package", name)
			}
			return name, nil
		}
	}
	return "", fmt.Errorf("docx: package declares no main document part")
}

// ensureContentTypeOverride adds an Override for partName (with a leading
// slash) to [Content_Types].xml unless one is already declared. The existing
// bytes are spliced rather than re-encoded so unrelated declarations keep
// their exact form.
func (c *container) ensureContentTypeOverride(partName, contentType string) error {
	data, ok := c.parts[contentTypesPart]
	if !ok {
		return fmt.Errorf("docx: package has no %s", contentTypesPart)
	}
	needle := fmt.Sprintf(`PartName="/%s"`, partName)
	if bytes.Contains(data, []byte(needle)) {
		return nil
	}
	closing := []byte("</Types>")
	idx := bytes.LastIndex(data, closing)
	if idx < 0 {
		return fmt.Errorf("docx: malformed %s", contentTypesPart)
	}
	override := fmt.Sprintf(`<Override PartName="/%s" ContentType="%s"/>`, partName, contentType)
	var buf bytes.Buffer
	buf.Write(data[:idx])
	buf.WriteString(override)
	buf.Write(data[idx:])
	c.setPart(contentTypesPart, buf.Bytes())
	return nil
}

// ensurePackageRel adds a package-level relationship to target unless one is
// already present, picking the first unused rId.
func (c *container) ensurePackageRel(relType, target string) error {
	data, ok := c.parts[packageRelsPart]
	if !ok {
		return fmt.Errorf("docx: package has no %s", packageRelsPart)
	}
	if bytes.Contains(data, []byte(fmt.Sprintf(`Target="%s"`, target))) {
		return nil
	}
	id := 1
	for bytes.Contains(data, []byte(fmt.Sprintf(`Id="rId%d"`, id))) {
		id++
	}
	closing := []byte("</Relationships>")
	idx := bytes.LastIndex(data, closing)
	if idx < 0 {
		return fmt.Errorf("docx: malformed %s", packageRelsPart)
	}
	rel := fmt.Sprintf(`<Relationship Id="rId%d" Type="%s" Target="%s"/>`, id, relType, target)
	var buf bytes.Buffer
	buf.Write(data[:idx])
	buf.WriteString(rel)
	buf.Write(data[idx:])
	c.setPart(packageRelsPart, buf.Bytes())
	return nil
}
