package localfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeCorpusFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadReadsAndTrimsTextFile(t *testing.T) {
	path := writeCorpusFile(t, "physics.md", []byte("\n\nনিউটনের সূত্র\n*****\nতাপগতিবিদ্যা\n\n"))

	source := New(path)
	text, err := source.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if text != "নিউটনের সূত্র\n*****\nতাপগতিবিদ্যা" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	source := New(filepath.Join(t.TempDir(), "absent.txt"))
	if _, err := source.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsBinaryGarbage(t *testing.T) {
	path := writeCorpusFile(t, "physics.txt", []byte{0xff, 0xfe, 0x00, 0x41})

	source := New(path)
	if _, err := source.Load(context.Background()); err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
}

func TestLoadRejectsMalformedPDF(t *testing.T) {
	path := writeCorpusFile(t, "physics.pdf", []byte("this is not a pdf"))

	source := New(path)
	if _, err := source.Load(context.Background()); err == nil {
		t.Fatal("expected error for malformed pdf")
	}
}
