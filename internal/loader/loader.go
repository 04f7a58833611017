// Package loader turns a directory of PDF files into document units:
// exactly one unit per readable file, holding the full concatenated
// text of its pages.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/kamalkrbh/doc-finder/internal/domain"
)

const pageSeparator = "\n"

// previewChars caps the length of the stored per-document preview.
const previewChars = 200

// Previewer produces a short extractive summary for a document's text.
type Previewer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Loader scans a directory for PDFs and builds document units.
type Loader struct {
	preview Previewer
	log     *zap.Logger
}

// New creates a loader. preview may be nil, in which case units carry
// no preview text.
func New(preview Previewer, log *zap.Logger) *Loader {
	return &Loader{preview: preview, log: log}
}

// Load builds one DocumentUnit per PDF in dir. A single file that fails
// extraction or contains no text is skipped with a warning; an unreadable
// directory is an error for the caller. The returned order follows the
// directory listing and carries no meaning downstream.
func (l *Loader) Load(dir string) ([]domain.DocumentUnit, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory %s: %w", dir, err)
	}
	var units []domain.DocumentUnit
	found := 0
	for _, entry := range entries {
		if entry.IsDir() || !IsPDF(entry.Name()) {
			continue
		}
		found++
		path := filepath.Join(dir, entry.Name())
		text, err := extractText(path)
		if err != nil {
			l.log.Warn("skipping unreadable PDF", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			l.log.Warn("skipping PDF with no extractable text", zap.String("file", entry.Name()))
			continue
		}
		unit := domain.DocumentUnit{SourceID: entry.Name(), Text: text}
		if l.preview != nil {
			if p, err := l.preview.Summarize(text, 1); err == nil {
				unit.Preview = truncate(p, previewChars)
			}
		}
		units = append(units, unit)
	}
	l.log.Info("scanned source directory",
		zap.String("dir", dir),
		zap.Int("pdfs_found", found),
		zap.Int("units_built", len(units)))
	return units, nil
}

// IsPDF reports whether a filename has a PDF extension, case-insensitive.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// extractText pulls plain text out of each page and joins the pages in
// reading order. The pdf library panics on some malformed inputs, so
// failures are recovered into ordinary errors.
func extractText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf extraction panicked: %v", r)
		}
	}()
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// One broken page does not discard the rest of the file.
			continue
		}
		if content != "" {
			pages = append(pages, content)
		}
	}
	return strings.Join(pages, pageSeparator), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
