package output

import (
	"errors"
	"fmt"
	"sync"

	"gitsync/internal/report"
)

// Sink defines a destination for results and lifecycle events.
type Sink interface {
	Write(v any) error
	Close() error
}

// Manager fans writes out to every registered sink and stamps lifecycle
// events with its run ID.
type Manager struct {
	runID string
	sinks []Sink
}

func NewManager() *Manager {
	return &Manager{runID: NewRunID()}
}

// RunID identifies the events written through this manager.
func (m *Manager) RunID() string {
	if m == nil {
		return ""
	}
	return m.runID
}

// SetRunID starts a new run; daemon mode calls it once per cycle.
func (m *Manager) SetRunID(id string) {
	if m != nil {
		m.runID = id
	}
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	if s == nil {
		return errors.New("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

func (m *Manager) Write(v any) error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	if e, ok := v.(Event); ok && e.RunID == "" {
		e.RunID = m.runID
		v = e
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(v); err != nil {
			errs = append(errs, fmt.Errorf("write %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors writing to sinks: %w", errors.Join(errs...))
	}
	return nil
}

func (m *Manager) Close() error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sinks: %w", errors.Join(errs...))
	}
	return nil
}

// Collector is an in-memory sink that keeps every result and event.
type Collector struct {
	mu      sync.Mutex
	results []report.Result
	events  []Event
}

func (c *Collector) Write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch t := v.(type) {
	case report.Result:
		c.results = append(c.results, t)
	case Event:
		c.events = append(c.events, t)
	}
	return nil
}

func (c *Collector) Close() error { return nil }

func (c *Collector) Results() []report.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]report.Result(nil), c.results...)
}

func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}
