package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/clarvo-ai/modelgen/internal/lock"
)

func TestEnsureNotWriting(t *testing.T) {
	output := filepath.Join(t.TempDir(), "models_gen.go")

	if err := ensureNotWriting(output); err != nil {
		t.Fatalf("expected no error without a lock, got %v", err)
	}

	// The test process itself is alive, so its PID counts as a live holder.
	if err := os.WriteFile(lock.PathFor(output), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatal(err)
	}
	err := ensureNotWriting(output)
	var held *lock.HeldError
	if !errors.As(err, &held) {
		t.Fatalf("expected HeldError, got %v", err)
	}
	if held.PID != os.Getpid() {
		t.Errorf("expected PID %d, got %d", os.Getpid(), held.PID)
	}
}
