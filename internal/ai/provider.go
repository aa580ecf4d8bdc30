package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/facturaia/invoice-trust-service/internal/models"
)

// Provider is the interface all AI extraction providers implement. The
// returned document is untrusted input: callers must run it through the
// validation layer before acting on it.
type Provider interface {
	// Name returns the provider identifier ("gemini", "openai").
	Name() string

	// ExtractInvoice sends a document to the provider and returns the
	// structured extraction along with advisory metadata.
	ExtractInvoice(ctx context.Context, fileBytes []byte, filename, mimeType string) (*ExtractionResult, error)
}

// ExtractionResult is the provider response plus processing metadata.
type ExtractionResult struct {
	Document models.RawExtraction

	// Pages is a best-effort page count of the source document.
	Pages int

	// Duration is the total provider call time in seconds.
	Duration float64

	// Performance holds per-stage timings in milliseconds.
	Performance map[string]float64
}

// NewProvider creates the configured AI provider.
func NewProvider(cfg models.AIConfig) (Provider, error) {
	switch cfg.DefaultProvider {
	case "gemini", "":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return NewGeminiProvider(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.RequestTimeout, cfg.MaxRetries), nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.RequestTimeout, cfg.MaxRetries), nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", cfg.DefaultProvider)
	}
}

const systemPrompt = `You are an expert financial document analyst. Extract EVERY data point from invoices with absolute precision.`

const jsonSchema = `{
  "invoice_number": "string or null",
  "date": "string",
  "vendor": {
    "name": "string or null",
    "address": "string or null"
  },
  "customer": {
    "name": "string or null",
    "billing_address": "string or null"
  },
  "shipping_info": {
    "address": "string or null",
    "city": "string or null",
    "state": "string or null",
    "country": "string or null",
    "postal_code": "string or null",
    "ship_mode": "string or null"
  },
  "order_id": "string or null",
  "line_items": [
    {
      "item_name": "string",
      "description": "string or null",
      "product_code": "string or null",
      "quantity": number,
      "rate": number,
      "amount": number
    }
  ],
  "financial_summary": {
    "subtotal": number or null,
    "discount": {
      "percent": number or null,
      "amount": number or null
    },
    "shipping": number or null,
    "tax": number or null,
    "total": number or null,
    "balance_due": number or null
  },
  "payment_terms": "string or null",
  "notes": "string or null"
}`

// buildUserPrompt assembles the extraction instructions sent with every
// document.
func buildUserPrompt() string {
	return fmt.Sprintf(`You will receive an invoice document. Analyse it carefully and return a single VALID JSON object matching the schema below. Do not include markdown fences or commentary. Use null for any missing field and preserve exact numeric values.

JSON schema:
%s

CRITICAL RULES:
- `+"`quantity`"+` is how many units.
- `+"`rate`"+` is the unit price (per item) with no currency symbols.
- `+"`amount`"+` is the total for the line (quantity × rate).
- Extract shipping, discounts, and taxes when present.
- Never invent data. Use null if you cannot find a value.`, jsonSchema)
}

// parseExtraction decodes the model's text response into a RawExtraction,
// stripping accidental markdown fences first. A response that cannot be
// decoded comes back as a document with the error field set rather than a
// hard failure, matching how providers report in-band errors.
func parseExtraction(responseText string) models.RawExtraction {
	cleaned := strings.TrimSpace(responseText)
	if cleaned == "" {
		return models.RawExtraction{
			Error:     "provider response did not contain text",
			LineItems: []models.LineItemRaw{},
		}
	}

	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
	}
	cleaned = strings.TrimRight(cleaned, "`")
	cleaned = strings.TrimSpace(cleaned)

	var doc models.RawExtraction
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		snippet := cleaned
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return models.RawExtraction{
			Error:     fmt.Sprintf("failed to parse provider JSON response: %s", snippet),
			LineItems: []models.LineItemRaw{},
		}
	}
	if doc.LineItems == nil {
		doc.LineItems = []models.LineItemRaw{}
	}
	return doc
}

// countPages estimates the page count of a document. PDFs are scanned for
// page objects, everything else counts as a single page.
func countPages(fileBytes []byte, mimeType string) int {
	if mimeType != "application/pdf" {
		return 1
	}
	n := bytes.Count(fileBytes, []byte("/Type /Page")) - bytes.Count(fileBytes, []byte("/Type /Pages"))
	if n <= 0 {
		n = bytes.Count(fileBytes, []byte("/Type/Page")) - bytes.Count(fileBytes, []byte("/Type/Pages"))
	}
	if n <= 0 {
		return 1
	}
	return n
}

// retryBackoffSeconds is the sleep before the given retry attempt,
// doubling per attempt and capped at 5 seconds.
func retryBackoffSeconds(attempt int) int {
	backoff := 1 << attempt
	if backoff > 5 {
		backoff = 5
	}
	return backoff
}
