// Package importer converts external document formats (.txt, .docx, .pdf)
// into plain text. It is the import collaborator consumed by the document
// store: everything past "give me the text" is someone else's problem.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/verdin/raiz/internal/apperr"
)

// Import extracts plain text from the file at path and returns the
// destination document name (base filename with a .txt extension) together
// with the text. Unrecognised extensions fail with apperr.ErrUnsupportedFormat;
// extraction failures and empty results fail with apperr.ErrReadError.
// Paragraph boundaries are preserved as newline-separated segments.
func Import(path string) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := base + ".txt"

	var (
		text string
		err  error
	)
	switch ext {
	case ".txt":
		text, err = readTxt(path)
	case ".docx":
		text, err = readDocx(path)
	case ".pdf":
		text, err = readPDF(path)
	default:
		return "", "", fmt.Errorf("importer: %s: %w", ext, apperr.ErrUnsupportedFormat)
	}
	if err != nil {
		return "", "", fmt.Errorf("importer: extract %s: %w", path, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", "", fmt.Errorf("importer: %s yielded no text: %w", path, apperr.ErrReadError)
	}
	return name, text, nil
}

// readTxt reads a plain-text file, decoding as UTF-8 when valid and falling
// back to Latin-1 otherwise.
func readTxt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, apperr.ErrReadError)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	// Latin-1: every byte maps to the code point of the same value.
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes), nil
}
