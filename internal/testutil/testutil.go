// Package testutil provides testing utilities for ringplot tests.
package testutil

import (
	"encoding/binary"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// DefaultWait bounds WaitFor.
const DefaultWait = 2 * time.Second

// WriteSamples writes values as 4-byte native-endian samples to a file in a
// temporary directory, followed by trailing filler bytes, and returns its path.
// A trailing count that is not a multiple of four leaves a partial sample at
// the end of the file.
func WriteSamples(t *testing.T, values []int32, trailing int) string {
	t.Helper()

	data := make([]byte, 0, len(values)*4+trailing)
	for _, v := range values {
		data = binary.NativeEndian.AppendUint32(data, uint32(v))
	}
	for range trailing {
		data = append(data, 0xAB)
	}

	path := filepath.Join(t.TempDir(), "samples.bin")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write samples: %v", err)
	}
	return path
}

// WaitFor polls cond until it holds, failing the test after DefaultWait.
// It must be called from the test goroutine.
func WaitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(DefaultWait)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// SkipIfNoGolangciLint skips the test if golangci-lint is not available
func SkipIfNoGolangciLint(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		t.Skip("golangci-lint not found in PATH, skipping test")
	}
}
