package localfile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Source loads the delimiter-separated textbook from local disk. Plain
// UTF-8 files (.txt, .md) are read as-is, PDFs go through text extraction.
type Source struct {
	path string
}

func New(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Load(_ context.Context) (string, error) {
	if strings.EqualFold(filepath.Ext(s.path), ".pdf") {
		return s.loadPDF()
	}
	return s.loadText()
}

func (s *Source) loadText() (string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("read corpus file: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("corpus file %s is not valid UTF-8", filepath.Base(s.path))
	}
	return strings.TrimSpace(string(raw)), nil
}

func (s *Source) loadPDF() (string, error) {
	file, reader, err := pdf.Open(s.path)
	if err != nil {
		return "", fmt.Errorf("open corpus pdf: %w", err)
	}
	defer file.Close()

	text, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, text); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
