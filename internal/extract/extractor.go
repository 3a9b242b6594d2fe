// Package extract provides text extraction from PDF, DOCX and plain text documents.
package extract

import (
	"fmt"
	"io"
	"os"
)

// Issue is a recoverable problem met while extracting, such as an unreadable page.
// Extraction carries on past issues and returns whatever text it recovered.
type Issue struct {
	Location string // e.g. "page 3", "word/document.xml"
	Err      error
}

func (i Issue) String() string {
	if i.Location == "" {
		return i.Err.Error()
	}
	return i.Location + ": " + i.Err.Error()
}

// Result is the best-effort text of a document plus the issues encountered.
type Result struct {
	Text   string
	Issues []Issue
}

func (r *Result) addIssue(location string, err error) {
	r.Issues = append(r.Issues, Issue{Location: location, Err: err})
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content. The format is taken
// from the file extension; unsupported formats fail with ErrUnsupportedFormat before
// the file is read. Parser failures never produce an error: they are reported as
// issues on the result, which may then have empty text.
func (e *Extractor) Extract(path string) (*Result, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, format)
}

// ExtractReader reads r fully and extracts its text as the given format.
func (e *Extractor) ExtractReader(r io.Reader, format Format) (*Result, error) {
	fn, err := extractorFor(format)
	if err != nil {
		return nil, err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return fn(content), nil
}

// ExtractBytes extracts text from content of the given format.
func (e *Extractor) ExtractBytes(content []byte, format Format) (*Result, error) {
	fn, err := extractorFor(format)
	if err != nil {
		return nil, err
	}
	return fn(content), nil
}

func extractorFor(format Format) (func([]byte) *Result, error) {
	switch format {
	case FormatPDF:
		return extractPDF, nil
	case FormatDOCX:
		return extractDOCX, nil
	case FormatText:
		return extractPlain, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// recovered runs fn and converts a panic inside a third-party parser into an error.
func recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return fn()
}
