package importer

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/verdin/raiz/internal/apperr"
)

// readPDF extracts the text of every page, one newline-separated segment per
// page. Pages without extractable text are skipped.
func readPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, apperr.ErrReadError)
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
			continue
		}
		if s := strings.TrimSpace(content); s != "" {
			pages = append(pages, s)
		}
	}
	return strings.Join(pages, "\n"), nil
}
