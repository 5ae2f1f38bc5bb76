package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gitsync/internal/report"

	"github.com/fatih/color"
)

type ConsoleSink struct {
	writer          io.Writer
	format          string // "text", "json", "ndjson"
	mu              sync.Mutex
	results         []report.Result // For JSON array output
	allowedStatuses map[string]bool
	// showOutput prints raw git lines under each text result.
	showOutput bool
}

func NewConsoleSink(w io.Writer, format string, filterStatuses []string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	s := &ConsoleSink{
		writer: w,
		format: format,
	}

	if len(filterStatuses) > 0 {
		s.allowedStatuses = make(map[string]bool)
		for _, st := range filterStatuses {
			s.allowedStatuses[strings.ToUpper(strings.TrimSpace(st))] = true
		}
	}

	return s
}

// ShowOutput toggles printing of raw git output in text mode.
func (s *ConsoleSink) ShowOutput(v bool) *ConsoleSink {
	s.showOutput = v
	return s
}

var statusColors = map[report.Status]*color.Color{
	report.StatusConverged: color.New(color.FgGreen),
	report.StatusPass:      color.New(color.FgGreen),
	report.StatusSkipped:   color.New(color.FgHiBlack),
	report.StatusManual:    color.New(color.FgYellow, color.Bold),
	report.StatusWarn:      color.New(color.FgYellow),
	report.StatusRejected:  color.New(color.FgRed),
	report.StatusFail:      color.New(color.FgRed),
	report.StatusUnknown:   color.New(color.FgMagenta),
	report.StatusError:     color.New(color.FgRed, color.Bold),
}

func colorStatus(st report.Status) string {
	label := "[" + string(st) + "]"
	if c, ok := statusColors[st]; ok {
		return c.Sprint(label)
	}
	return label
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	if len(s.allowedStatuses) > 0 {
		if r, ok := v.(report.Result); ok {
			if !s.allowedStatuses[string(r.Status)] {
				return nil
			}
		}
	}

	switch s.format {
	case "json":
		r, ok := v.(report.Result)
		if !ok {
			return nil
		}
		s.results = append(s.results, r)
		return nil
	case "ndjson":
		return encodeEvent(s.writer, v)
	case "text":
		r, ok := v.(report.Result)
		if !ok {
			return nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s", colorStatus(r.Status), r.Repo)
		if r.Operation != "" {
			fmt.Fprintf(&b, " (%s)", r.Operation)
		}
		if r.Message != "" {
			fmt.Fprintf(&b, ": %s", r.Message)
		}
		b.WriteString("\n")
		if s.showOutput {
			for _, line := range r.Output {
				fmt.Fprintf(&b, "    | %s\n", line)
			}
		}
		if _, err := io.WriteString(s.writer, b.String()); err != nil {
			return err
		}
		return flush(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		return encodeResults(s.writer, s.results)
	case "text", "ndjson":
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

// encodeEvent writes one NDJSON line for an Event or a bare Result.
func encodeEvent(w io.Writer, v any) error {
	var e Event
	switch t := v.(type) {
	case Event:
		e = t
	case report.Result:
		e = eventFromResult(t)
	default:
		return nil
	}
	if err := json.NewEncoder(w).Encode(e); err != nil {
		return err
	}
	return flush(w)
}

func encodeResults(w io.Writer, results []report.Result) error {
	if results == nil {
		results = []report.Result{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return err
	}
	return flush(w)
}

// flush pushes buffered bytes through when the writer supports it
// (bufio.Writer, some terminals); others are written through already.
func flush(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
