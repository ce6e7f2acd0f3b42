package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	model.ConfigPath = "disable"
}

// extractPDF reads page text with ledongthuc/pdf. The page count comes from
// pdfcpu in relaxed mode; a file pdfcpu rejects is still tried for text.
func extractPDF(content []byte) (text string, meta map[string]interface{}, err error) {
	defer func() {
		// ledongthuc/pdf panics on some malformed files.
		if r := recover(); r != nil {
			text, meta, err = "", nil, fmt.Errorf("%w: malformed PDF: %v", ErrUnsupportedFormat, r)
		}
	}()
	meta = map[string]interface{}{"extraction_method": "pdf"}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if pages, err := api.PageCount(bytes.NewReader(content), conf); err == nil {
		meta["pages"] = pages
	}

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", nil, fmt.Errorf("%w: open PDF: %v", ErrUnsupportedFormat, err)
	}
	numPages := r.NumPage()
	if _, ok := meta["pages"]; !ok {
		meta["pages"] = numPages
	}
	var buf bytes.Buffer
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", nil, fmt.Errorf("%w: extract page %d: %v", ErrUnsupportedFormat, i, err)
		}
		buf.WriteString(pageText)
		if i < numPages {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), meta, nil
}
