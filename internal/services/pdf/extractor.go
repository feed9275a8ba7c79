// Package pdf provides PDF text extraction for résumé search.
//
// We use the ledongthuc/pdf library for text extraction.
// It's a pure Go implementation with no CGO or external dependencies.
//
// Callers depend on the TextExtractor interface, not the library, so the
// viewer can be tested with a fake extractor.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrEmptyPDF is returned when asked to open zero bytes.
	ErrEmptyPDF = errors.New("empty PDF content")
	// ErrNotPDF is returned for data without the %PDF- header.
	ErrNotPDF = errors.New("not a PDF file")
)

// Document is an opened PDF.
type Document interface {
	// NumPages returns the number of pages.
	NumPages() int
	// PageText returns the ordered text fragments of a page. Pages are 1-based.
	PageText(page int) ([]string, error)
}

// TextExtractor opens raw PDF bytes.
type TextExtractor interface {
	Open(data []byte) (Document, error)
}

// ExtractText reads every page of the PDF in ascending order and joins the
// result into one searchable string: fragments are separated by single
// spaces, each page is followed by a space, and the whole is trimmed.
//
// Any page error fails the whole document. The viewer records such
// documents as having empty text.
func ExtractText(ex TextExtractor, data []byte) (text string, err error) {
	doc, err := ex.Open(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= doc.NumPages(); i++ {
		fragments, err := doc.PageText(i)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		sb.WriteString(strings.Join(fragments, " "))
		sb.WriteString(" ")
	}

	return strings.TrimSpace(sb.String()), nil
}

// LedongExtractor is the TextExtractor backed by ledongthuc/pdf.
type LedongExtractor struct{}

// NewLedongExtractor creates the default extractor.
func NewLedongExtractor() *LedongExtractor {
	return &LedongExtractor{}
}

// Open parses the PDF structure.
//
// The library panics on some malformed files, so every call into it is
// guarded and panics come back as errors.
func (e *LedongExtractor) Open(data []byte) (doc Document, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyPDF
	}
	if !ValidatePDF(data) {
		return nil, ErrNotPDF
	}
	defer recoverInto(&err, "open")

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	return &ledongDocument{reader: reader, pages: reader.NumPage()}, nil
}

type ledongDocument struct {
	reader *pdf.Reader
	pages  int
}

func (d *ledongDocument) NumPages() int { return d.pages }

// PageText returns one fragment per visual row, top to bottom.
func (d *ledongDocument) PageText(page int) (fragments []string, err error) {
	if page < 1 || page > d.pages {
		return nil, fmt.Errorf("page %d out of range (1..%d)", page, d.pages)
	}
	defer recoverInto(&err, fmt.Sprintf("page %d", page))

	p := d.reader.Page(page)
	if p.V.IsNull() {
		// Pages with no content dictionary simply have no text
		return nil, nil
	}

	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, fmt.Errorf("failed to read text rows: %w", err)
	}

	for _, row := range rows {
		var sb strings.Builder
		for _, t := range row.Content {
			sb.WriteString(t.S)
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			fragments = append(fragments, s)
		}
	}
	return fragments, nil
}

// recoverInto turns a panic from the PDF library into an error.
func recoverInto(err *error, where string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("pdf library panic (%s): %v", where, r)
	}
}

// ValidatePDF checks if the data looks like a valid PDF by checking the magic bytes.
func ValidatePDF(data []byte) bool {
	// PDF files start with "%PDF-"
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
