package extracting

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Fitz extracts the text layer of PDF documents with MuPDF. It needs no
// network access and is the default extractor. Image-only scans come back
// with little or no text; use one of the OCR extractors for those.
type Fitz struct{}

// NewFitz creates a Fitz extractor.
func NewFitz() *Fitz {
	return &Fitz{}
}

// ExtractText pulls the text layer from every page of a PDF.
func (f *Fitz) ExtractText(data []byte, contentType string) (*Extraction, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType != "application/pdf" {
		return nil, fmt.Errorf("fitz extractor supports PDF only, got %q", contentType)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	var text strings.Builder
	pages := doc.NumPage()
	for i := 0; i < pages; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("extracting text from page %d: %w", i, err)
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	return &Extraction{
		Text:         text.String(),
		DocumentType: TypePDF,
		Metadata: Metadata{
			PageCount: pages,
			FileSize:  len(data),
		},
	}, nil
}

// Close releases resources (no-op for Fitz).
func (f *Fitz) Close() error {
	return nil
}
