package render_test

import (
	"os"
	"path/filepath"
	"testing"

	"hookreel/internal/render"
)

func writeFont(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("font"), 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
}

func TestFindFontPrefersExactMatch(t *testing.T) {
	dir := t.TempDir()
	writeFont(t, filepath.Join(dir, "nested", "ArialBold.ttf"))
	writeFont(t, filepath.Join(dir, "Arial.ttf"))

	got, ok := render.FindFont("Arial", nil, []string{dir})
	if !ok || got != filepath.Join(dir, "Arial.ttf") {
		t.Fatalf("FindFont = %q, %v", got, ok)
	}
}

func TestFindFontRecursiveGlob(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "truetype", "dejavu", "DejaVuSans.otf")
	writeFont(t, want)

	got, ok := render.FindFont("Helvetica", []string{"DejaVuSans"}, []string{filepath.Join(dir, "absent"), dir})
	if !ok || got != want {
		t.Fatalf("FindFont = %q, %v; want %q", got, ok, want)
	}
}

func TestFindFontCaseSensitiveGlob(t *testing.T) {
	dir := t.TempDir()
	writeFont(t, filepath.Join(dir, "sub", "arial-regular.ttf"))
	if got, ok := render.FindFont("Arial", nil, []string{dir}); ok {
		t.Fatalf("expected no match for differently cased name, got %q", got)
	}
}

func TestFindFontNone(t *testing.T) {
	if got, ok := render.FindFont("Nope", []string{"AlsoNope"}, []string{t.TempDir()}); ok {
		t.Fatalf("unexpected font %q", got)
	}
}
