package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLoggerWithRotation_WritesJSON(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLoggerWithRotation(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLoggerWithRotation() error = %v", err)
	}
	logger.Info("pipeline started", "capacity", 8)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	entries := decodeLines(t, data)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["msg"] != "pipeline started" {
		t.Errorf("msg = %v", entries[0]["msg"])
	}
	if entries[0]["capacity"] != float64(8) {
		t.Errorf("capacity = %v, want 8", entries[0]["capacity"])
	}
}

func TestNewLoggerWithRotation_EmptyDirUsesStderr(t *testing.T) {
	logger, err := NewLoggerWithRotation("", LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLoggerWithRotation() error = %v", err)
	}
	if logger.out.closer != nil {
		t.Error("stderr logger should not own a closer")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{LevelDebug, []string{"d", "i", "w", "e"}},
		{LevelInfo, []string{"i", "w", "e"}},
		{LevelWarn, []string{"w", "e"}},
		{LevelError, []string{"e"}},
		{"bogus", []string{"i", "w", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, nil, tt.level)
			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			logger.Error("e")

			entries := decodeLines(t, buf.Bytes())
			if len(entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tt.want))
			}
			for i, msg := range tt.want {
				if entries[i]["msg"] != msg {
					t.Errorf("entry %d msg = %v, want %s", i, entries[i]["msg"], msg)
				}
			}
		})
	}
}

func TestWithComponentAndRun(t *testing.T) {
	var buf bytes.Buffer
	base := newLogger(&buf, nil, LevelDebug)

	producer := base.WithRun("run-1").WithComponent("producer")
	producer.Info("sample pushed", "value", 42)
	base.Info("untagged")

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["component"] != "producer" {
		t.Errorf("component = %v, want producer", entries[0]["component"])
	}
	if entries[0]["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want run-1", entries[0]["run_id"])
	}
	if _, ok := entries[1]["component"]; ok {
		t.Error("parent logger should not inherit child attributes")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, nil, LevelInfo)

	if logger.With() != logger {
		t.Error("With() with no args should return the same logger")
	}

	logger.With("restart", 3, 99, "ignored").Info("reset")

	entries := decodeLines(t, buf.Bytes())
	if entries[0]["restart"] != float64(3) {
		t.Errorf("restart = %v, want 3", entries[0]["restart"])
	}
	if strings.Contains(buf.String(), "ignored") {
		t.Error("non-string keys should be skipped")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Error("dropped")
	logger.WithComponent("consumer").Info("dropped")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestClose_SharedByChildren(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLoggerWithRotation(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLoggerWithRotation() error = %v", err)
	}
	child := logger.WithComponent("consumer")

	if err := child.Close(); err != nil {
		t.Fatalf("child Close() error = %v", err)
	}
	if logger.out.closer != nil {
		t.Error("closing a child should release the shared file")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLoggerWithRotation(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLoggerWithRotation() error = %v", err)
	}

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := logger.With("worker", w)
			for i := range perWorker {
				l.Info("tick", "i", i)
			}
		}()
	}
	wg.Wait()
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if got := len(decodeLines(t, data)); got != workers*perWorker {
		t.Errorf("got %d entries, want %d", got, workers*perWorker)
	}
}
