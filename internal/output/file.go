package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gitsync/internal/report"
)

type FileSink struct {
	path    string
	format  string
	file    *os.File
	mu      sync.Mutex
	results []report.Result
}

// InferFormat maps a file extension to "json" or "ndjson".
func InferFormat(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return "json", nil
	case ".ndjson", ".jsonl":
		return "ndjson", nil
	case "":
		return "", fmt.Errorf("cannot infer output format from file extension (missing extension)")
	default:
		return "", fmt.Errorf("cannot infer output format from file extension %q", ext)
	}
}

func NewFileSink(path string, format string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}

	if format == "" {
		f, err := InferFormat(path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &FileSink{path: path, format: format, file: f}, nil
}

func (s *FileSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "ndjson" {
		return encodeEvent(s.file, v)
	}
	if r, ok := v.(report.Result); ok {
		s.results = append(s.results, r)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.format == "json" {
		err = encodeResults(s.file, s.results)
	}
	if closeErr := s.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
