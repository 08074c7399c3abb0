package document

import (
	"time"

	"github.com/youbihi/facture-tracker/internal/analysis"
)

// Document represents a stored document with its analysis
type Document struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	Filename     string                     `json:"filename"`
	ContentType  string                     `json:"content_type"`
	FileSize     int                        `json:"file_size"`
	DocumentType string                     `json:"document_type"`
	Analysis     *analysis.DocumentAnalysis `json:"analysis"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}
