package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLogrus_WritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogrus(&buf, "info")
	l.Debug("dropped", Fields{"a": 1})
	l.Info("lifecycle.stream.create", Fields{"streamId": "ds1/1"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected exactly one line at info level, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["msg"] != "lifecycle.stream.create" || entry["streamId"] != "ds1/1" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(NopLogger); !ok {
		t.Fatalf("expected NopLogger for nil")
	}
	l := NewLogrus(&bytes.Buffer{}, "bogus")
	if OrNop(l) != l {
		t.Fatalf("expected passthrough")
	}
}
