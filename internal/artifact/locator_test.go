package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestResolveDirectField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "syllabus.pdf"))

	got, err := Resolve(map[string]any{"path": "syllabus.pdf"}, dir, "syllabus.pdf")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want, _ := filepath.Abs(filepath.Join(dir, "syllabus.pdf"))
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestResolveAbsoluteField(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "elsewhere", "doc.pdf")
	writeFile(t, abs)

	got, err := Resolve(map[string]any{"file_path": abs}, t.TempDir(), "doc.pdf")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != abs {
		t.Fatalf("want %s, got %s", abs, got)
	}
}

func TestResolveNestedPayload(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "syllabus.pdf"))

	data := map[string]any{
		"files": []any{
			map[string]any{"downloaded_to": "syllabus.pdf"},
		},
	}
	got, err := Resolve(data, dir, "syllabus.pdf")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want, _ := filepath.Abs(filepath.Join(dir, "syllabus.pdf"))
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestResolveDirectorySweep(t *testing.T) {
	dir := t.TempDir()
	deep := filepath.Join(dir, "a", "b", "syllabus.pdf")
	writeFile(t, deep)

	got, err := Resolve(map[string]any{"status": "done"}, dir, "syllabus.pdf")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want, _ := filepath.Abs(deep)
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestSweepPrefersExactName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a-other.pdf"))
	writeFile(t, filepath.Join(dir, "sub", "syllabus.pdf"))

	got, err := Resolve(map[string]any{}, dir, "syllabus.pdf")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if filepath.Base(got) != "syllabus.pdf" {
		t.Fatalf("sweep should prefer the exact filename, got %s", got)
	}
}

func TestResolveFlushesBody(t *testing.T) {
	dir := t.TempDir()

	got, err := Resolve(map[string]any{"body": "%PDF-1.4 inline"}, dir, "syllabus.pdf")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	content, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("read flushed file: %v", err)
	}
	if string(content) != "%PDF-1.4 inline" {
		t.Fatalf("flushed content mismatch: %q", content)
	}
}

func TestResolveNotFound(t *testing.T) {
	_, err := Resolve(map[string]any{"status": "done"}, t.TempDir(), "syllabus.pdf")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
