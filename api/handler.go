package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/facturaia/invoice-trust-service/internal/ai"
	"github.com/facturaia/invoice-trust-service/internal/analysis"
	"github.com/facturaia/invoice-trust-service/internal/models"
	"github.com/facturaia/invoice-trust-service/internal/pipeline"
)

const (
	MaxUploadSize = 10 * 1024 * 1024 // 10MB per file
	Version       = "1.0.0"

	maxBatchFiles = 50
)

// Handler handles HTTP requests for invoice extraction and validation
type Handler struct {
	config    *models.Config
	provider  ai.Provider
	processor *pipeline.Processor
}

// NewHandler creates a new API handler
func NewHandler(config *models.Config, provider ai.Provider, processor *pipeline.Processor) *Handler {
	return &Handler{
		config:    config,
		provider:  provider,
		processor: processor,
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// Main endpoints
	router.HandleFunc("/api/invoices/extract-batch", h.ExtractBatch).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/analyze", h.Analyze).Methods("POST", "OPTIONS")

	// Engagement tracking
	router.HandleFunc("/api/telemetry/engagement", h.TrackEngagement).Methods("POST", "OPTIONS")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	router.Use(corsMiddleware)

	return router
}

// corsMiddleware allows browser frontends to call the API directly
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Memory    MemoryStats       `json:"memory"`
	AI        map[string]string `json:"ai"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

var startTime = time.Now()

// Health endpoint - enhanced for monitoring
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		AI: map[string]string{
			"defaultProvider": h.config.AI.DefaultProvider,
			"activeProvider":  h.provider.Name(),
		},
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// ExtractBatch processes a batch of invoice files and returns the
// consolidated report with line items, per-invoice results and totals.
func (h *Handler) ExtractBatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize*maxBatchFiles)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	var fileHeaders []*multipart.FileHeader
	if r.MultipartForm != nil {
		fileHeaders = r.MultipartForm.File["files"]
	}
	if len(fileHeaders) == 0 {
		h.sendError(w, http.StatusBadRequest, "No files provided")
		return
	}
	if len(fileHeaders) > maxBatchFiles {
		h.sendError(w, http.StatusBadRequest,
			fmt.Sprintf("Too many files: maximum %d per batch", maxBatchFiles))
		return
	}

	docs := make([]pipeline.Document, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		doc, err := readUpload(header)
		if err != nil {
			h.sendError(w, http.StatusBadRequest,
				fmt.Sprintf("Failed to read file %s: %v", header.Filename, err))
			return
		}
		docs = append(docs, doc)
	}

	zap.L().Info("batch extraction requested",
		zap.Int("files", len(docs)),
		zap.String("provider", h.provider.Name()))

	report, err := h.processor.ProcessBatch(ctx, docs)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(report)
}

// readUpload pulls one multipart file into memory
func readUpload(header *multipart.FileHeader) (pipeline.Document, error) {
	file, err := header.Open()
	if err != nil {
		return pipeline.Document{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return pipeline.Document{}, err
	}

	return pipeline.Document{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// AnalyzeResponse represents the single-document analysis response
type AnalyzeResponse struct {
	ResultMarkdown string             `json:"result_markdown"`
	Pages          int                `json:"pages"`
	Duration       float64            `json:"duration"`
	Sections       []analysis.Section `json:"sections"`
	Entities       []analysis.Entity  `json:"entities"`
}

// Analyze extracts a single document and returns its structure and
// entities alongside the raw extraction, without running validation.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "No file provided (use 'file' field)")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	result, err := h.provider.ExtractInvoice(ctx, data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	markdown := renderMarkdown(result.Document)

	response := AnalyzeResponse{
		ResultMarkdown: markdown,
		Pages:          result.Pages,
		Duration:       result.Duration,
		Sections:       analysis.ParseSections(markdown),
		Entities:       analysis.ExtractEntities(markdown),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// renderMarkdown turns an extraction into a readable markdown document
// so the section parser and entity extractor have text to work with.
func renderMarkdown(doc models.RawExtraction) string {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "# Extraction\n"
	}

	vendor := "Invoice"
	if doc.Vendor != nil && doc.Vendor.Name != "" {
		vendor = doc.Vendor.Name
	}

	return fmt.Sprintf("# %s\n\n## Extracted Data\n\n```json\n%s\n```\n", vendor, body)
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
