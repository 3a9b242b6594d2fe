package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF extracts page text one page at a time. A page that fails to decode is
// recorded as an issue and skipped.
func extractPDF(content []byte) *Result {
	res := &Result{}
	var r *pdf.Reader
	err := recovered(func() error {
		var openErr error
		r, openErr = pdf.NewReader(bytes.NewReader(content), int64(len(content)))
		return openErr
	})
	if err != nil {
		res.addIssue("document", fmt.Errorf("open PDF: %w", err))
		return res
	}

	var numPages int
	if err := recovered(func() error { numPages = r.NumPage(); return nil }); err != nil {
		res.addIssue("document", fmt.Errorf("count pages: %w", err))
		return res
	}

	var b strings.Builder
	for i := 1; i <= numPages; i++ {
		var text string
		err := recovered(func() error {
			page := r.Page(i)
			if page.V.IsNull() {
				return nil
			}
			var pageErr error
			text, pageErr = page.GetPlainText(nil)
			return pageErr
		})
		if err != nil {
			res.addIssue(fmt.Sprintf("page %d", i), err)
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	res.Text = b.String()
	return res
}
