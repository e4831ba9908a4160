package importer

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/verdin/raiz/internal/apperr"
)

// readDocx extracts the text of a Word-processor XML package. A .docx is a
// zip archive whose word/document.xml holds runs of text (w:t) grouped into
// paragraphs (w:p); each non-empty paragraph becomes one newline-separated
// segment.
func readDocx(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, apperr.ErrReadError)
	}
	defer zr.Close()

	var docXML io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("%v: %w", err, apperr.ErrReadError)
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("word/document.xml missing: %w", apperr.ErrReadError)
	}
	defer docXML.Close()

	return extractDocxText(docXML)
}

// extractDocxText streams the document XML and collects paragraph text.
func extractDocxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%v: %w", err, apperr.ErrReadError)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(current.String()); s != "" {
					paragraphs = append(paragraphs, s)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		paragraphs = append(paragraphs, s)
	}
	return strings.Join(paragraphs, "\n"), nil
}
