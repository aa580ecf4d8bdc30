package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturaia/invoice-trust-service/internal/models"
)

func TestParseExtractionPlainJSON(t *testing.T) {
	doc := parseExtraction(`{
		"invoice_number": "INV-42",
		"date": "2024-02-01",
		"vendor": {"name": "Acme"},
		"line_items": [
			{"item_name": "Widget", "quantity": 2, "rate": 10.5, "amount": 21.0}
		],
		"financial_summary": {"subtotal": 21.0, "total": 21.0}
	}`)

	assert.Empty(t, doc.Error)
	assert.Equal(t, "INV-42", doc.InvoiceNumber)
	require.NotNil(t, doc.Vendor)
	assert.Equal(t, "Acme", doc.Vendor.Name)
	require.Len(t, doc.LineItems, 1)
	assert.Equal(t, "2", doc.LineItems[0].Quantity.String())
	assert.Equal(t, "10.5", doc.LineItems[0].Rate.String())
	require.NotNil(t, doc.Financial)
	assert.Equal(t, "21.0", doc.Financial.Total.String())
}

func TestParseExtractionStripsMarkdownFences(t *testing.T) {
	doc := parseExtraction("```json\n{\"invoice_number\": \"INV-1\", \"line_items\": []}\n```")

	assert.Empty(t, doc.Error)
	assert.Equal(t, "INV-1", doc.InvoiceNumber)
}

func TestParseExtractionStringifiedNumbers(t *testing.T) {
	doc := parseExtraction(`{
		"line_items": [
			{"item_name": "Desk", "quantity": "2", "rate": "$1,000.00", "amount": "2,000.00"}
		]
	}`)

	require.Len(t, doc.LineItems, 1)
	assert.Equal(t, "2", doc.LineItems[0].Quantity.String())
	assert.Equal(t, "$1,000.00", doc.LineItems[0].Rate.String())
}

func TestParseExtractionNullValuesAbsent(t *testing.T) {
	doc := parseExtraction(`{
		"line_items": [{"item_name": "X", "quantity": null, "rate": 1, "amount": 1}],
		"financial_summary": {"total": null, "subtotal": 10}
	}`)

	require.Len(t, doc.LineItems, 1)
	assert.False(t, doc.LineItems[0].Quantity.Present())
	require.NotNil(t, doc.Financial)
	assert.False(t, doc.Financial.Total.Present())
	assert.True(t, doc.Financial.Subtotal.Present())
}

func TestParseExtractionEmptyResponse(t *testing.T) {
	doc := parseExtraction("   ")

	assert.NotEmpty(t, doc.Error)
	assert.NotNil(t, doc.LineItems)
}

func TestParseExtractionGarbageResponse(t *testing.T) {
	doc := parseExtraction("I could not read the invoice, sorry.")

	assert.Contains(t, doc.Error, "failed to parse provider JSON response")
	assert.Empty(t, doc.LineItems)
}

func TestParseExtractionInBandError(t *testing.T) {
	doc := parseExtraction(`{"error": "No text could be extracted from this document", "line_items": []}`)

	assert.Equal(t, "No text could be extracted from this document", doc.Error)
}

func TestCountPages(t *testing.T) {
	pdf := []byte("%PDF-1.4\n/Type /Pages\n/Type /Page\n/Type /Page\n")
	assert.Equal(t, 2, countPages(pdf, "application/pdf"))

	assert.Equal(t, 1, countPages([]byte("irrelevant"), "image/png"))
	assert.Equal(t, 1, countPages([]byte("no page objects"), "application/pdf"))
}

func TestRetryBackoffCapped(t *testing.T) {
	assert.Equal(t, 2, retryBackoffSeconds(1))
	assert.Equal(t, 4, retryBackoffSeconds(2))
	assert.Equal(t, 5, retryBackoffSeconds(3))
	assert.Equal(t, 5, retryBackoffSeconds(10))
}

func TestNewProviderFactory(t *testing.T) {
	p, err := NewProvider(models.AIConfig{
		DefaultProvider: "gemini",
		Gemini:          models.GeminiConfig{APIKey: "test-key"},
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())

	p, err = NewProvider(models.AIConfig{
		DefaultProvider: "openai",
		OpenAI:          models.OpenAIConfig{APIKey: "test-key"},
	})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewProvider(models.AIConfig{DefaultProvider: "gemini"})
	assert.Error(t, err)

	_, err = NewProvider(models.AIConfig{DefaultProvider: "watson"})
	assert.Error(t, err)
}
