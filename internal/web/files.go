package web

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// fileEntry is one row in a directory listing page.
type fileEntry struct {
	Name     string
	Size     int64
	Modified time.Time
}

// listDir returns the plain files in dir sorted case-insensitively by name.
// A missing directory lists as empty.
func listDir(dir string) ([]fileEntry, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var files []fileEntry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileEntry{Name: e.Name(), Size: info.Size(), Modified: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i].Name) < strings.ToLower(files[j].Name)
	})
	return files, nil
}

// tailLines returns the last n lines of the file at path. A missing file
// reads as empty.
func tailLines(path string, n int) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n"), nil
}

// safeBaseName reduces a client-supplied filename to a bare base name.
// Browsers may send full paths, including Windows-style ones, so both
// separator kinds are stripped. Rejects names that would escape the target
// directory.
func safeBaseName(name string) (string, bool) {
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		name = name[i+1:]
	}
	name = filepath.Base(name)
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", false
	}
	return name, true
}
