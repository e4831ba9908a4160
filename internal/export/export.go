// Package export renders project artifacts into portable formats: the code
// book as CSV and the coding diary as plain text.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/verdin/raiz/internal/models"
)

// CodeBookCSV writes the flattened code book as CSV. Hierarchy is conveyed
// by indenting code names two spaces per depth level, so the file reads as
// a tree in any spreadsheet tool.
func CodeBookCSV(w io.Writer, rows []models.CodeBookRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"code", "memo", "fragments"}); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			strings.Repeat("  ", row.Depth) + row.Name,
			row.Memo,
			strconv.Itoa(row.Count),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: write row %s: %w", row.Name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

// FragmentsCSV writes every coded fragment as one CSV row, suitable for
// analysis outside the application.
func FragmentsCSV(w io.Writer, codes []*models.Code) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"code", "document", "start", "end", "text"}); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, c := range codes {
		for _, f := range c.Fragments {
			record := []string{
				c.Name,
				f.Document,
				strconv.Itoa(f.Start),
				strconv.Itoa(f.End),
				f.Text,
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("export: write fragment: %w", err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}
