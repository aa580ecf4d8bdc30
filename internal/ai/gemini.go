package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider extracts invoices with Google Gemini. Documents are sent
// inline, so PDFs and images both go through the model's native document
// understanding without a local OCR pass.
type GeminiProvider struct {
	apiKey     string
	model      string
	timeout    time.Duration
	maxRetries int
}

// NewGeminiProvider creates a Gemini provider. Timeout is per attempt in
// seconds; zero values fall back to 60s and 3 retries.
func NewGeminiProvider(apiKey, model string, timeoutSeconds float64, maxRetries int) *GeminiProvider {
	if model == "" {
		model = defaultGeminiModel
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &GeminiProvider{
		apiKey:     apiKey,
		model:      model,
		timeout:    time.Duration(timeoutSeconds * float64(time.Second)),
		maxRetries: maxRetries,
	}
}

// Name returns "gemini".
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// ExtractInvoice sends the document to Gemini and parses the JSON reply.
// Transient failures are retried with capped exponential backoff.
func (p *GeminiProvider) ExtractInvoice(ctx context.Context, fileBytes []byte, filename, mimeType string) (*ExtractionResult, error) {
	start := time.Now()
	perf := map[string]float64{}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	model.SetTemperature(0.1)
	model.SetMaxOutputTokens(4096)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	parts := []genai.Part{
		genai.Blob{MIMEType: normalizeMIMEType(mimeType), Data: fileBytes},
		genai.Text(buildUserPrompt()),
	}

	apiStart := time.Now()
	resp, err := p.generateWithRetry(ctx, model, parts)
	perf["api_call_time"] = float64(time.Since(apiStart).Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("gemini extraction for %s: %w", filename, err)
	}

	parseStart := time.Now()
	doc := parseExtraction(responseText(resp))
	perf["json_parse_time"] = float64(time.Since(parseStart).Milliseconds())

	return &ExtractionResult{
		Document:    doc,
		Pages:       countPages(fileBytes, mimeType),
		Duration:    time.Since(start).Seconds(),
		Performance: perf,
	}, nil
}

func (p *GeminiProvider) generateWithRetry(ctx context.Context, model *genai.GenerativeModel, parts []genai.Part) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		resp, err := model.GenerateContent(attemptCtx, parts...)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < p.maxRetries {
			backoff := time.Duration(retryBackoffSeconds(attempt)) * time.Second
			zap.L().Warn("gemini request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

// normalizeMIMEType maps missing or generic content types to something the
// model accepts.
func normalizeMIMEType(mimeType string) string {
	if mimeType == "" || mimeType == "application/octet-stream" {
		return "application/pdf"
	}
	return mimeType
}
