package extract

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var errInvalidUTF8 = errors.New("invalid UTF-8 replaced with U+FFFD")

// extractPlain returns content as string, validating it is valid UTF-8.
// Invalid UTF-8 sequences are replaced with the replacement character and reported.
func extractPlain(content []byte) *Result {
	res := &Result{}
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
		res.addIssue("", errInvalidUTF8)
	}
	res.Text = strings.TrimPrefix(s, "\uFEFF")
	return res
}
