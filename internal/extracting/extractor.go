package extracting

import (
	"path/filepath"
	"strings"
)

// Document types recognized by the extractors.
const (
	TypePDF     = "pdf"
	TypeImage   = "image"
	TypeDOCX    = "docx"
	TypeUnknown = "unknown"
)

// Metadata carries basic facts about the extracted document.
type Metadata struct {
	Title     string `json:"title"`
	PageCount int    `json:"page_count"`
	FileSize  int    `json:"file_size"`
	OCRUsed   bool   `json:"ocr_used"`
}

// Extraction is the raw text recovered from one document, plus metadata.
// Field extraction and scoring happen downstream in the analysis package.
type Extraction struct {
	Text         string   `json:"text"`
	DocumentType string   `json:"document_type"`
	Metadata     Metadata `json:"metadata"`
}

// Extractor recovers the text layer of a scanned or printed document.
type Extractor interface {
	// ExtractText extracts all text content from the document bytes.
	ExtractText(data []byte, contentType string) (*Extraction, error)
	// Close releases extractor resources.
	Close() error
}

// DetectDocumentType maps a filename extension and MIME type onto one of
// the recognized document types.
func DetectDocumentType(filename, contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case mimeType == "application/pdf":
		return TypePDF
	case strings.HasPrefix(mimeType, "image/"):
		return TypeImage
	case strings.Contains(mimeType, "wordprocessingml") || strings.Contains(mimeType, "msword"):
		return TypeDOCX
	}

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "pdf":
		return TypePDF
	case "jpg", "jpeg", "png", "tiff", "gif", "bmp", "heic", "heif":
		return TypeImage
	case "doc", "docx":
		return TypeDOCX
	}
	return TypeUnknown
}
