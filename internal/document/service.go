package document

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/youbihi/facture-tracker/internal/analysis"
	"github.com/youbihi/facture-tracker/internal/extracting"
)

// IDGenerator generates unique IDs for documents
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles document operations: upload, text extraction, analysis,
// persistence and retrieval.
type Service struct {
	db          DB
	extractor   extracting.Extractor
	storage     Storage
	analyzer    *analysis.Analyzer
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, extractor extracting.Extractor, storage Storage, analyzer *analysis.Analyzer) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		analyzer:    analyzer,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor extracting.Extractor, storage Storage, analyzer *analysis.Analyzer, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		analyzer:    analyzer,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Analyzer exposes the underlying analyzer, so the HTTP layer can offer
// raw-text analysis, conversions and rate lookups against the same cache.
func (s *Service) Analyzer() *analysis.Analyzer {
	return s.analyzer
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	// Get the extension
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	// Remove special characters, keep only alphanumeric, spaces, hyphens, and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	// Replace multiple spaces with single space
	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	// Trim spaces
	base = strings.TrimSpace(base)

	// Truncate to reasonable length (50 chars for base, plus extension)
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	// If base is empty after sanitization, use a default
	if base == "" {
		base = "document"
	}

	return base + ext
}

// ProcessDocument uploads a document, extracts its text, analyzes it, and
// saves both the file and the analysis record.
func (s *Service) ProcessDocument(ctx context.Context, filename string, data []byte, contentType string) (*Document, error) {
	// Generate unique ID
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	// Sanitize filename to clean up phone-generated long filenames
	cleanFilename := sanitizeFilename(filename)

	// Save file to storage
	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	// Extract text
	extraction, err := s.extractor.ExtractText(data, contentType)
	if err != nil {
		slog.Error("Failed to extract document text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// Clean up the saved file since extraction failed
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("extracting document text: %w", err)
	}

	documentType := extraction.DocumentType
	if documentType == "" || documentType == extracting.TypeUnknown {
		documentType = extracting.DetectDocumentType(filename, contentType)
	}

	// Analyze extracted text. Analysis never fails; malformed content
	// produces a low-confidence record.
	result := s.analyzer.AnalyzeText(ctx, extraction.Text, documentType)
	result.Name = filename

	doc := &Document{
		ID:           id,
		Name:         filename,
		Filename:     savedPath,
		ContentType:  contentType,
		FileSize:     len(data),
		DocumentType: documentType,
		Analysis:     result,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Save to database
	if err := s.db.SaveDocument(doc); err != nil {
		// Clean up file if database save fails
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving document to database: %w", err)
	}

	return doc, nil
}

// BatchFile is one uploaded file in a batch.
type BatchFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// BatchOutcome holds the stored documents and the isolated failures of one
// batch upload.
type BatchOutcome struct {
	Documents []*Document           `json:"documents"`
	Errors    []analysis.BatchError `json:"errors"`
}

// ProcessBatch processes uploaded files strictly sequentially, in input
// order. A file whose extraction or persistence fails is recorded in the
// errors list without aborting the rest. Progress is reported after each
// file; cancellation is checked between files and returns the partial
// outcome with the context error.
func (s *Service) ProcessBatch(ctx context.Context, files []BatchFile, onProgress analysis.ProgressFunc) (*BatchOutcome, error) {
	slog.Info("Processing document batch", "count", len(files))

	outcome := &BatchOutcome{
		Documents: []*Document{},
		Errors:    []analysis.BatchError{},
	}

	completed := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		doc, err := s.ProcessDocument(ctx, file.Filename, file.Data, file.ContentType)
		if err != nil {
			outcome.Errors = append(outcome.Errors, analysis.BatchError{
				Name:  file.Filename,
				Error: err.Error(),
			})
		} else {
			outcome.Documents = append(outcome.Documents, doc)
		}

		completed++
		if onProgress != nil {
			onProgress(completed, len(files), len(outcome.Errors))
		}
	}

	slog.Info("Batch processing completed",
		"total", len(files),
		"successful", len(outcome.Documents),
		"failed", len(outcome.Errors),
	)
	return outcome, nil
}

// GetDocument retrieves a document by ID
func (s *Service) GetDocument(id string) (*Document, error) {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all documents
func (s *Service) ListDocuments() ([]*Document, error) {
	documents, err := s.db.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return documents, nil
}

// DeleteDocument removes a document and its file
func (s *Service) DeleteDocument(id string) error {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		return fmt.Errorf("getting document for deletion: %w", err)
	}

	// Delete file
	if err := s.storage.Delete(doc.Filename); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", doc.Filename, "error", err)
	}

	// Delete from database
	if err := s.db.DeleteDocument(id); err != nil {
		return fmt.Errorf("deleting document from database: %w", err)
	}
	return nil
}

// GetDocumentFile retrieves the file data for a document
func (s *Service) GetDocumentFile(id string) ([]byte, string, error) {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting document: %w", err)
	}

	data, err := s.storage.Get(doc.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting document file: %w", err)
	}

	return data, doc.ContentType, nil
}
