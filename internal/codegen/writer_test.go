package codegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFile_Replaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models", "models_gen.go")

	if err := WriteFile(path, []byte("package models\n")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteFile(path, []byte("package models\n\ntype A struct{}\n")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "type A struct{}") {
		t.Errorf("expected replaced content, got %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("expected mode 0644, got %v", info.Mode().Perm())
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestWriteFile_FailureKeepsTarget(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory at the target path makes the final rename fail.
	path := filepath.Join(dir, "models_gen.go")
	if err := os.MkdirAll(filepath.Join(path, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := WriteFile(path, []byte("package models\n")); err == nil {
		t.Fatal("expected error replacing a directory")
	}
	if _, err := os.Stat(filepath.Join(path, "keep")); err != nil {
		t.Errorf("expected existing target untouched: %v", err)
	}
	assertNoTempFiles(t, dir)
}

func TestFormat_InvalidSource(t *testing.T) {
	if _, err := Format("models.go", []byte("package models\n\nfunc {")); err == nil {
		t.Fatal("expected format error")
	}
}

func TestFormat_RemovesUnusedImports(t *testing.T) {
	src := "package models\n\nimport (\n\"strings\"\n\"time\"\n)\n\nvar _ = time.Second\n"
	out, err := Format("models.go", []byte(src))
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if strings.Contains(string(out), `"strings"`) {
		t.Errorf("expected unused import removed, got\n%s", out)
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
