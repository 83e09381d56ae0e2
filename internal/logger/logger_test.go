package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn", "text")

	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info logged at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn missing: %s", out)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", "json")
	l.With("source", "etf").Info("collected", "items", 7)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, buf.String())
	}
	if rec["source"] != "etf" {
		t.Errorf("source = %v", rec["source"])
	}
	if rec["items"] != float64(7) {
		t.Errorf("items = %v", rec["items"])
	}
}

func TestForRun_TagsRunID(t *testing.T) {
	var buf bytes.Buffer
	l, id := NewWithWriter(&buf, "debug", "text").ForRun()
	if len(id) != 36 {
		t.Fatalf("run id = %q, want uuid", id)
	}
	l.Debug("start")
	if !strings.Contains(buf.String(), "run="+id) {
		t.Errorf("run id missing from %q", buf.String())
	}
}

func TestParseLevel_Unknown(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "verbose", "text")
	l.Debug("dropped")
	l.Info("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("unknown level should default to info: %q", buf.String())
	}
}
