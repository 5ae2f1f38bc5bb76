// Package ignore regenerates .gitignore files from configured exclusions.
package ignore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gitsync/internal/repo"
)

const FileName = ".gitignore"

// Writer replaces a record's .gitignore with its ignore list. An empty list
// leaves no file behind.
type Writer struct{}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Regenerate(r *repo.Repository) error {
	path := filepath.Join(r.Directory, FileName)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}

	content := Render(r.IgnoreList)
	if content == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// normalize drops blank entries and trailing whitespace, keeping order.
func normalize(in []string) []string {
	var out []string
	for _, p := range in {
		p = strings.TrimRight(p, " \t\r\n")
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Render returns the file content Regenerate writes, empty when no file
// should exist.
func Render(list []string) string {
	patterns := normalize(list)
	if len(patterns) == 0 {
		return ""
	}
	return strings.Join(patterns, "\n") + "\n"
}

// Current reports whether the .gitignore on disk matches the record's list.
func Current(r *repo.Repository) (bool, error) {
	data, err := os.ReadFile(filepath.Join(r.Directory, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return Render(r.IgnoreList) == "", nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", FileName, err)
	}
	return string(data) == Render(r.IgnoreList), nil
}
