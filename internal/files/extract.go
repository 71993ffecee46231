package files

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ImageMarker stands in for the text of an image upload.
const ImageMarker = "[IMAGE_FILE]"

var tagPattern = regexp.MustCompile(`(?s)<[^>]*>`)

// ExtractText returns the plain text of an upload of the given content type.
// Unsupported types yield an empty string.
func ExtractText(mime string, data []byte) (string, error) {
	switch mime {
	case "text/plain":
		return collapseWhitespace(tagPattern.ReplaceAllString(string(data), " ")), nil
	case "application/pdf":
		return extractPDF(data)
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return extractDOCX(data)
	case "image/jpeg", "image/png":
		return ImageMarker, nil
	default:
		return "", nil
	}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return collapseWhitespace(string(b)), nil
}

// extractDOCX gathers the <w:t> runs of word/document.xml.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("docx: %w", err)
		}
		defer rc.Close()

		var out strings.Builder
		dec := xml.NewDecoder(rc)
		for {
			tok, err := dec.Token()
			if err != nil {
				break
			}
			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != "t" {
				continue
			}
			var v string
			if err := dec.DecodeElement(&v, &se); err == nil && v != "" {
				out.WriteString(v)
				out.WriteString(" ")
			}
		}
		return collapseWhitespace(out.String()), nil
	}
	return "", fmt.Errorf("docx: word/document.xml not found")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
