package internal

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/Iron-Ham/ringplot/internal/testutil"
)

// moduleRoot walks up from the working directory to the directory holding go.mod.
func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above the working directory")
		}
		dir = parent
	}
}

// TestGolangciLintCompliance runs golangci-lint over the whole module.
// If this test fails, run: golangci-lint run
func TestGolangciLintCompliance(t *testing.T) {
	testutil.SkipIfNoGolangciLint(t)

	// A per-test build cache keeps the run working in read-only sandboxes.
	cmd := exec.Command("golangci-lint", "run", "--allow-parallel-runners", "./...")
	cmd.Dir = moduleRoot(t)
	cmd.Env = append(os.Environ(), "GOCACHE="+t.TempDir())
	output, err := cmd.CombinedOutput()

	if err != nil {
		t.Errorf("golangci-lint found issues:\n%s", output)
	}
}
