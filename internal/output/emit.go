package output

import (
	"fmt"
	"io"
	"sync"

	"gitsync/internal/report"
)

// EmitSink writes additional structured outputs.
//
// Formats:
//   - json: aggregates results and writes a single JSON array on Close
//   - ndjson: streams Event values (one JSON object per line)
type EmitSink struct {
	writer  io.Writer
	format  string // "json" | "ndjson"
	mu      sync.Mutex
	results []report.Result
}

func NewEmitSink(w io.Writer, format string) (*EmitSink, error) {
	if w == nil {
		return nil, fmt.Errorf("emit sink writer must not be nil")
	}
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported emit format: %s", format)
	}
	return &EmitSink{writer: w, format: format}, nil
}

func (s *EmitSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "ndjson" {
		return encodeEvent(s.writer, v)
	}
	if r, ok := v.(report.Result); ok {
		s.results = append(s.results, r)
	}
	return nil
}

func (s *EmitSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		return encodeResults(s.writer, s.results)
	}
	return nil
}
