package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   zerolog.Level
		wantOK bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, true},
		{" WARNING ", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"loud", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := parseLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseLevel(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNew_EnvOverridesLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogNoColor, "true")

	var buf bytes.Buffer
	opts := DefaultOptions(true)
	opts.Out = &buf
	l := New(opts)

	l.Info().Msg("hidden")
	l.Error().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line leaked past env level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("error line missing: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color codes: %q", out)
	}
}
