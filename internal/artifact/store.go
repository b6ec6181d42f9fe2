// Package artifact manages the single cumulative output document that merge
// passes append to. The document on disk only ever changes through Persist,
// which writes a complete new package to a temporary file and renames it over
// the old one, so readers never observe a half-written artifact.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rameshbaboov/docmerger/internal/docx"
)

// StorageError wraps a failure to open or create the artifact. An existing
// file that cannot be parsed is reported rather than replaced; overwriting it
// would discard previously merged content.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("artifact: %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store opens artifacts at a fixed path.
type Store struct {
	path string
}

// NewStore returns a store bound to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the artifact file's path.
func (s *Store) Path() string { return s.path }

// Exists reports whether an artifact file is present on disk.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Open loads the artifact from disk, or returns a fresh empty artifact when
// no file exists yet. Nothing is written until Persist.
func (s *Store) Open() (*Artifact, error) {
	_, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Artifact{path: s.path, doc: docx.New()}, nil
	}
	if err != nil {
		return nil, &StorageError{Path: s.path, Err: err}
	}
	doc, err := docx.Open(s.path)
	if err != nil {
		return nil, &StorageError{Path: s.path, Err: err}
	}
	return &Artifact{path: s.path, doc: doc}, nil
}

// Artifact is an open, mutable view of the cumulative document. Appends stay
// in memory until Persist; discarding the value discards them.
type Artifact struct {
	path string
	doc  *docx.Document
}

// HasContent reports whether the artifact body holds at least one block.
func (a *Artifact) HasContent() bool { return a.doc.HasContent() }

// BlockCount returns the number of body content blocks.
func (a *Artifact) BlockCount() int { return len(a.doc.Blocks()) }

// Blocks returns the artifact's body blocks in order.
func (a *Artifact) Blocks() []docx.Block { return a.doc.Blocks() }

// LastMerged returns the source name stamped into the artifact by the most
// recent Persist, or "" for a fresh or unstamped artifact.
func (a *Artifact) LastMerged() string { return a.doc.LastMerged() }

// AppendSeparator appends a page-break paragraph.
func (a *Artifact) AppendSeparator() {
	a.doc.AppendBlock(docx.PageBreak())
}

// AppendBlocks appends extracted body blocks in order.
func (a *Artifact) AppendBlocks(blocks []docx.Block) {
	a.doc.AppendBlocks(blocks)
}

// Persist durably replaces the artifact on disk with the in-memory state,
// stamping lastSource into the document's properties as part of the same
// write. Either the complete new package is visible afterwards or the old
// one is untouched.
func (a *Artifact) Persist(lastSource string) error {
	a.doc.SetLastMerged(lastSource)

	dir := filepath.Dir(a.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact: create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(a.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("artifact: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := a.doc.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact: close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("artifact: chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, a.path); err != nil {
		return fmt.Errorf("artifact: replace %s: %w", a.path, err)
	}
	return syncDir(dir)
}

// syncDir flushes the directory entry so the rename itself is durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("artifact: open directory %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("artifact: sync directory %s: %w", dir, err)
	}
	return nil
}
