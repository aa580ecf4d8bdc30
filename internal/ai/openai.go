package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider extracts invoices through the OpenAI chat API. A custom
// base URL makes it work against any OpenAI-compatible endpoint. Images go
// through the vision path; other documents are submitted as text, which
// works for text-based files but not for scanned PDFs.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
}

// NewOpenAIProvider creates an OpenAI provider. Timeout is per attempt in
// seconds; zero values fall back to 60s and 3 retries.
func NewOpenAIProvider(apiKey, baseURL, model string, timeoutSeconds float64, maxRetries int) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		timeout:    time.Duration(timeoutSeconds * float64(time.Second)),
		maxRetries: maxRetries,
	}
}

// Name returns "openai".
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// ExtractInvoice sends the document to the chat API and parses the JSON
// reply. Transient failures are retried with capped exponential backoff.
func (p *OpenAIProvider) ExtractInvoice(ctx context.Context, fileBytes []byte, filename, mimeType string) (*ExtractionResult, error) {
	start := time.Now()
	perf := map[string]float64{}

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.1,
		MaxTokens:   4096,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			p.userMessage(fileBytes, mimeType),
		},
	}

	apiStart := time.Now()
	resp, err := p.completeWithRetry(ctx, req)
	perf["api_call_time"] = float64(time.Since(apiStart).Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("openai extraction for %s: %w", filename, err)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	parseStart := time.Now()
	doc := parseExtraction(text)
	perf["json_parse_time"] = float64(time.Since(parseStart).Milliseconds())

	return &ExtractionResult{
		Document:    doc,
		Pages:       countPages(fileBytes, mimeType),
		Duration:    time.Since(start).Seconds(),
		Performance: perf,
	}, nil
}

func (p *OpenAIProvider) userMessage(fileBytes []byte, mimeType string) openai.ChatCompletionMessage {
	if strings.HasPrefix(mimeType, "image/") {
		dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(fileBytes))
		return openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: buildUserPrompt()},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}
	}

	content := decodeAsText(fileBytes)
	return openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: buildUserPrompt() + "\n\nSOURCE DOCUMENT:\n" + content,
	}
}

func (p *OpenAIProvider) completeWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		resp, err := p.client.CreateChatCompletion(attemptCtx, req)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
		if attempt < p.maxRetries {
			backoff := time.Duration(retryBackoffSeconds(attempt)) * time.Second
			zap.L().Warn("openai request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return openai.ChatCompletionResponse{}, ctx.Err()
			}
		}
	}
	return openai.ChatCompletionResponse{}, lastErr
}

// decodeAsText renders file bytes as UTF-8, dropping invalid sequences.
func decodeAsText(fileBytes []byte) string {
	if utf8.Valid(fileBytes) {
		return string(fileBytes)
	}
	return strings.ToValidUTF8(string(fileBytes), "")
}
