// Package docextract pulls plain text out of uploaded documents.
package docextract

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MediaPDF  = "application/pdf"
	MediaDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaText = "text/plain"

	DefaultMaxBytes = 64 << 10
)

var ErrUnsupported = errors.New("unsupported document type")

// Supported reports whether ExtractText understands mediaType.
func Supported(mediaType string) bool {
	switch mediaType {
	case MediaPDF, MediaDOCX, MediaText, "text/markdown":
		return true
	}
	return false
}

// ExtractText returns the document text, truncated to maxBytes on a rune
// boundary. maxBytes <= 0 means DefaultMaxBytes.
func ExtractText(mediaType string, data []byte, maxBytes int) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	var (
		text string
		err  error
	)
	switch mediaType {
	case MediaText, "text/markdown":
		text = string(data)
	case MediaPDF:
		text, err = extractPDF(data)
	case MediaDOCX:
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mediaType)
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(strings.ToValidUTF8(text, ""))
	return truncate(text, maxBytes), nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

var (
	paragraphEnd = regexp.MustCompile(`</w:p>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()
	return xmlToText(doc.Editable().GetContent()), nil
}

// xmlToText flattens WordprocessingML into paragraphs.
func xmlToText(content string) string {
	s := paragraphEnd.ReplaceAllString(content, "\n")
	s = xmlTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return blankLines.ReplaceAllString(s, "\n\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
