package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFileType is returned for uploads that are neither PDF nor plain text.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// TextExtractor reads the plain text of an uploaded job description or resume.
type TextExtractor interface {
	ExtractText(filePath string) (string, error)
}

type textExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractor{}
}

// ExtractText parses .pdf files page by page and reads .txt files as-is.
func (t *textExtractor) ExtractText(filePath string) (string, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return extractPDFText(filePath)
	case ".txt":
		return readPlainText(filePath)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(filePath))
	}
}

func extractPDFText(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var pages []string
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		// A page that fails to decode is skipped; the rest of the document is still useful.
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = CleanText(text); text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return "", errors.New("no text content found in PDF")
	}
	return strings.Join(pages, "\n\n"), nil
}

func readPlainText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", errors.New("text file is not valid UTF-8")
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("text file is empty")
	}
	return text, nil
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
