package jsonlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func TestJSONLogger(t *testing.T) {
	t.Run("INFO Level", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&buf, LevelInfo)
		l.PrintInfo("starting", map[string]string{"db": "library.db"})

		lines := decodeLines(t, &buf)
		if len(lines) != 1 {
			t.Fatalf("expected 1 log line; got %d", len(lines))
		}
		if lines[0]["level"] != "INFO" || lines[0]["message"] != "starting" {
			t.Errorf("unexpected entry %v", lines[0])
		}
		props, _ := lines[0]["properties"].(map[string]any)
		if props["db"] != "library.db" {
			t.Errorf("expected db property; got %v", props)
		}
		if _, ok := lines[0]["trace"]; ok {
			t.Errorf("INFO entries carry no trace")
		}
	})

	t.Run("ERROR Level", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&buf, LevelInfo)
		l.PrintError(errors.New("gateway down"), nil)

		lines := decodeLines(t, &buf)
		if len(lines) != 1 || lines[0]["level"] != "ERROR" {
			t.Fatalf("unexpected entries %v", lines)
		}
		if trace, _ := lines[0]["trace"].(string); trace == "" {
			t.Errorf("ERROR entries carry a trace")
		}
	})

	t.Run("below minimum", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&buf, LevelError)
		l.PrintInfo("dropped", nil)
		if buf.Len() != 0 {
			t.Errorf("expected nothing written; got %q", buf.String())
		}
	})

	t.Run("FATAL Level", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&buf, LevelInfo)
		code := -1
		l.exit = func(c int) { code = c }
		l.PrintFatal(errors.New("bad config"), nil)

		if code != 1 {
			t.Errorf("expected exit 1; got %d", code)
		}
		lines := decodeLines(t, &buf)
		if len(lines) != 1 || lines[0]["level"] != "FATAL" {
			t.Fatalf("unexpected entries %v", lines)
		}
	})

	t.Run("Off", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&buf, LevelOff)
		l.exit = func(int) {}
		l.PrintFatal(errors.New("silent"), nil)
		if buf.Len() != 0 {
			t.Errorf("expected nothing written; got %q", buf.String())
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"ERROR", LevelError, false},
		{" fatal ", LevelFatal, false},
		{"off", LevelOff, false},
		{"debug", LevelOff, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}
