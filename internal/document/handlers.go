package document

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/youbihi/facture-tracker/internal/analysis"
	"github.com/youbihi/facture-tracker/internal/currency"
)

// maxFormSize bounds multipart uploads (50MB to handle high-resolution
// phone photos).
const maxFormSize = int64(50 << 20)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON encodes a response body as JSON
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleListDocuments returns a list of all documents
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := s.service.ListDocuments()
	if err != nil {
		slog.Error("Error listing documents", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, documents)
}

// detectContentType fills in the content type from the filename extension
// when the upload did not carry one
func detectContentType(header *multipart.FileHeader) string {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		switch ext {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}

	// Preserve HEIC/HEIF MIME types so conversion logic can detect them
	return strings.ToLower(strings.TrimSpace(contentType))
}

// readUploadedFile reads one multipart file, enforcing the size cap
func readUploadedFile(header *multipart.FileHeader) ([]byte, string, error) {
	if header.Size > maxFormSize {
		return nil, "", errFileTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}

	return data, detectContentType(header), nil
}

type uploadError string

func (e uploadError) Error() string { return string(e) }

const errFileTooLarge = uploadError("File is too large. Maximum size is 50MB. Please compress or resize your image.")

// handleUploadDocument handles a single document upload
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = string(errFileTooLarge)
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if err.Error() == "http: no such file" {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}
	f.Close()

	data, contentType, err := readUploadedFile(header)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		code := http.StatusInternalServerError
		if err == errFileTooLarge {
			code = http.StatusBadRequest
		}
		jsonError(w, err.Error(), code)
		return
	}

	doc, err := s.service.ProcessDocument(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing document", "filename", header.Filename, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// handleUploadBatch handles a multi-file upload. Files are processed
// sequentially; per-file failures are reported in the response without
// failing the whole batch.
func (s *Server) handleUploadBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		jsonError(w, "No files were selected. Please choose files to upload.", http.StatusBadRequest)
		return
	}

	files := make([]BatchFile, 0, len(headers))
	for _, header := range headers {
		data, contentType, err := readUploadedFile(header)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		files = append(files, BatchFile{
			Filename:    header.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}

	outcome, err := s.service.ProcessBatch(r.Context(), files, func(completed, total, failed int) {
		slog.Debug("Batch progress", "completed", completed, "total", total, "failed", failed)
	})
	if err != nil {
		slog.Error("Batch upload aborted", "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, outcome)
}

// handleGetDocument returns a single document
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Document ID required", http.StatusBadRequest)
		return
	}
	doc, err := s.service.GetDocument(id)
	if err != nil {
		corsError(w, "Document not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleGetDocumentFile returns the file for a document
func (s *Server) handleGetDocumentFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Document ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetDocumentFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteDocument deletes a document
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Document ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteDocument(id); err != nil {
		corsError(w, "Error deleting document", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleAnalyzeText analyzes raw text without storing anything
func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		DocumentType string `json:"document_type"`
		Text         string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		jsonError(w, "Text is required", http.StatusBadRequest)
		return
	}

	result := s.service.Analyzer().AnalyzeText(r.Context(), req.Text, req.DocumentType)
	result.Name = req.Name

	writeJSON(w, http.StatusOK, result)
}

// handleAnalyzeBatch analyzes a batch of raw texts without storing anything
func (s *Server) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Documents []struct {
			Name         string `json:"name"`
			DocumentType string `json:"document_type"`
			Text         string `json:"text"`
		} `json:"documents"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Documents) == 0 {
		jsonError(w, "At least one document is required", http.StatusBadRequest)
		return
	}

	items := make([]analysis.BatchItem, 0, len(req.Documents))
	for _, d := range req.Documents {
		items = append(items, analysis.BatchItem{
			Name:         d.Name,
			DocumentType: d.DocumentType,
			Text:         d.Text,
		})
	}

	batch, err := s.service.Analyzer().AnalyzeBatch(r.Context(), items, nil)
	if err != nil {
		slog.Error("Batch analysis aborted", "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, batch)
}

// handleConvert converts an amount between currencies, optionally at a
// historical date
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	amountStr := r.URL.Query().Get("amount")
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		jsonError(w, "Invalid amount", http.StatusBadRequest)
		return
	}

	from := strings.ToUpper(r.URL.Query().Get("from"))
	if from == "" {
		jsonError(w, "Source currency is required", http.StatusBadRequest)
		return
	}
	to := strings.ToUpper(r.URL.Query().Get("to"))
	if to == "" {
		to = currency.BaseCurrency
	}
	date := r.URL.Query().Get("date")

	conversion := s.service.Analyzer().Converter().Convert(r.Context(), amount, from, to, nil, date)
	writeJSON(w, http.StatusOK, conversion)
}

// handleGetRates returns the exchange rate snapshot for a date (current
// rates when no date is given)
func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	snapshot, err := s.service.Analyzer().RateSnapshot(r.Context(), date)
	if err != nil {
		slog.Error("Error fetching rates", "date", date, "error", err)
		jsonError(w, "Error fetching rates", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}
