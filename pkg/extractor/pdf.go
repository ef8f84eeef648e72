package extractor

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDF concatenates the plain text of every page with no separator.
// A page whose text cannot be read contributes nothing. The pdf reader
// panics on malformed files; those panics come back as errors.
func ExtractPDF(r io.ReaderAt, size int64) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("read PDF: %v", rec)
		}
	}()

	rdr, err := pdf.NewReader(r, size)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= rdr.NumPage(); i++ {
		txt, err := pageText(rdr, i)
		if err != nil {
			continue
		}
		b.WriteString(txt)
	}
	return b.String(), nil
}

func pageText(rdr *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("page %d: %v", num, rec)
		}
	}()

	page := rdr.Page(num)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d not found", num)
	}
	return page.GetPlainText(nil)
}
