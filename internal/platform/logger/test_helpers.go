package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// Capture collects JSON log records written by a test logger. It is safe
// for concurrent writers.
type Capture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *Capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Records decodes every captured line, failing the test on malformed JSON.
func (c *Capture) Records(t *testing.T) []map[string]any {
	t.Helper()

	var records []map[string]any
	sc := bufio.NewScanner(strings.NewReader(c.String()))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("malformed log line %q: %v", sc.Text(), err)
		}
		records = append(records, rec)
	}
	return records
}

// Contains reports whether any captured output contains s.
func (c *Capture) Contains(s string) bool {
	return strings.Contains(c.String(), s)
}

// NewTestLogger returns a debug-level JSON logger writing into a fresh
// Capture. The default logger is not touched.
func NewTestLogger(t *testing.T) (*Capture, *slog.Logger) {
	t.Helper()

	c := &Capture{}
	return c, slog.New(slog.NewJSONHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
