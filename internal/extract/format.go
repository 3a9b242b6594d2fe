package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for documents whose format is not one of
// the supported Format values.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Format is a supported document format.
type Format int

const (
	// FormatUnknown is the zero value and is never extractable.
	FormatUnknown Format = iota
	// FormatPDF is a PDF document (.pdf).
	FormatPDF
	// FormatDOCX is an Office Open XML word document (.docx).
	FormatDOCX
	// FormatText is UTF-8 plain text (.txt).
	FormatText
)

// Formats lists every supported format in a stable order.
var Formats = []Format{FormatPDF, FormatDOCX, FormatText}

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	case FormatText:
		return "txt"
	default:
		return "unknown"
	}
}

// Extension returns the file extension for f, including the leading dot.
func (f Format) Extension() string {
	if f == FormatUnknown {
		return ""
	}
	return "." + f.String()
}

// ParseFormat parses a format tag such as "pdf", ".DOCX" or "txt".
func ParseFormat(tag string) (Format, error) {
	t := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "."))
	for _, f := range Formats {
		if f.String() == t {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, tag)
}

// FormatFromPath detects the format from the file extension of path.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return FormatUnknown, fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, filepath.Base(path))
	}
	return ParseFormat(ext)
}
