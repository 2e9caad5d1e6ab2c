package docextract

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	got, err := ExtractText(MediaText, []byte("  Jane Doe\nGo engineer  "), 0)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "Jane Doe\nGo engineer" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractTruncatesOnRuneBoundary(t *testing.T) {
	got, err := ExtractText(MediaText, []byte(strings.Repeat("é", 10)), 5)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "éé" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractUnsupported(t *testing.T) {
	_, err := ExtractText("image/png", []byte{1, 2, 3}, 0)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v", err)
	}
	if Supported("image/png") || !Supported(MediaDOCX) {
		t.Fatalf("Supported mismatch")
	}
}

func TestExtractRejectsCorruptPDF(t *testing.T) {
	if _, err := ExtractText(MediaPDF, []byte("not a pdf"), 0); err == nil {
		t.Fatalf("expected error")
	}
}

func TestXMLToText(t *testing.T) {
	in := `<w:body><w:p><w:r><w:t>Jane &amp; Co</w:t></w:r></w:p><w:p><w:r><w:t>Go</w:t></w:r></w:p></w:body>`
	if got := xmlToText(in); got != "Jane & Co\nGo\n" {
		t.Fatalf("got %q", got)
	}
}
