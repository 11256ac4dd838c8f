package syllabus

import (
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor produces plain text from a syllabus document on disk.
type Extractor interface {
	ExtractText(path string) (string, error)
}

// PDFExtractor reads PDF documents page by page.
type PDFExtractor struct{}

func (PDFExtractor) ExtractText(path string) (string, error) {
	log.Printf("📄 Extracting text from PDF: %s", path)

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}
