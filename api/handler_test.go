package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturaia/invoice-trust-service/internal/ai"
	"github.com/facturaia/invoice-trust-service/internal/models"
	"github.com/facturaia/invoice-trust-service/internal/pipeline"
	"github.com/facturaia/invoice-trust-service/internal/services"
)

type stubProvider struct {
	result *ai.ExtractionResult
	err    error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) ExtractInvoice(ctx context.Context, fileBytes []byte, filename, mimeType string) (*ai.ExtractionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestHandler(provider ai.Provider) *Handler {
	config := &models.Config{
		AI: models.AIConfig{DefaultProvider: "gemini"},
	}
	processor := pipeline.NewProcessor(provider, services.NewValidator(services.DefaultPolicy()), 2)
	return NewHandler(config, provider, processor)
}

func stubExtraction() *ai.ExtractionResult {
	return &ai.ExtractionResult{
		Document: models.RawExtraction{
			InvoiceNumber: "INV-42",
			Date:          "2024-03-15",
			Vendor:        &models.VendorInfo{Name: "Acme Corp"},
			Customer:      &models.CustomerInfo{Name: "Customer Inc"},
			ShippingInfo:  &models.ShippingInfo{City: "Springfield"},
			OrderID:       "ORD-1",
			LineItems: []models.LineItemRaw{
				{
					ItemName: "Widget",
					Quantity: models.NewFlexString("2"),
					Rate:     models.NewFlexNumber(50),
					Amount:   models.NewFlexNumber(100),
				},
			},
			Financial: &models.FinancialSummary{
				Subtotal: models.NewFlexNumber(100),
				Total:    models.NewFlexNumber(100),
			},
		},
		Pages:    1,
		Duration: 0.05,
	}
}

func multipartBody(t *testing.T, field string, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range filenames {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4 test content"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&stubProvider{})
	router := h.SetupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.Equal(t, "stub", resp.AI["activeProvider"])
	assert.NotEmpty(t, resp.Uptime)
}

func TestExtractBatchNoFiles(t *testing.T) {
	h := newTestHandler(&stubProvider{result: stubExtraction()})
	router := h.SetupRoutes()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/extract-batch", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No files provided")
}

func TestExtractBatchSuccess(t *testing.T) {
	h := newTestHandler(&stubProvider{result: stubExtraction()})
	router := h.SetupRoutes()

	body, contentType := multipartBody(t, "files", "invoice1.pdf", "invoice2.pdf")

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/extract-batch", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report models.BatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Summary.TotalInvoicesProcessed)
	assert.Equal(t, "200.00", report.Summary.TotalAmount)
	assert.Equal(t, []string{"Acme Corp"}, report.Summary.Vendors)
	assert.Len(t, report.LineItems, 2)
	assert.Len(t, report.Invoices, 2)
}

func TestExtractBatchWrongField(t *testing.T) {
	h := newTestHandler(&stubProvider{result: stubExtraction()})
	router := h.SetupRoutes()

	body, contentType := multipartBody(t, "file", "invoice1.pdf")

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/extract-batch", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No files provided")
}

func TestAnalyzeSuccess(t *testing.T) {
	h := newTestHandler(&stubProvider{result: stubExtraction()})
	router := h.SetupRoutes()

	body, contentType := multipartBody(t, "file", "invoice.pdf")

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.ResultMarkdown, "# Acme Corp")
	assert.Contains(t, resp.ResultMarkdown, "INV-42")
	assert.Equal(t, 1, resp.Pages)
	require.NotEmpty(t, resp.Sections)
	assert.Equal(t, "Acme Corp", resp.Sections[0].Title)

	var dates []string
	for _, e := range resp.Entities {
		if e.Type == "DATE" {
			dates = append(dates, e.Text)
		}
	}
	assert.Contains(t, dates, "2024-03-15")
}

func TestAnalyzeNoFile(t *testing.T) {
	h := newTestHandler(&stubProvider{result: stubExtraction()})
	router := h.SetupRoutes()

	body, contentType := multipartBody(t, "files", "invoice.pdf")

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file provided")
}

func TestAnalyzeProviderError(t *testing.T) {
	h := newTestHandler(&stubProvider{err: assert.AnError})
	router := h.SetupRoutes()

	body, contentType := multipartBody(t, "file", "invoice.pdf")

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestTrackEngagement(t *testing.T) {
	h := newTestHandler(&stubProvider{})
	router := h.SetupRoutes()

	payload := `{"docId":"inv-123","sectionId":"s-1","event":"view","ms":5000}`
	req := httptest.NewRequest(http.MethodPost, "/api/telemetry/engagement", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"recorded"}`, rec.Body.String())
}

func TestTrackEngagementBadBody(t *testing.T) {
	h := newTestHandler(&stubProvider{})
	router := h.SetupRoutes()

	req := httptest.NewRequest(http.MethodPost, "/api/telemetry/engagement", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(&stubProvider{})
	router := h.SetupRoutes()

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
