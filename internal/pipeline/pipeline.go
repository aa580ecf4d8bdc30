package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/facturaia/invoice-trust-service/internal/ai"
	"github.com/facturaia/invoice-trust-service/internal/models"
	"github.com/facturaia/invoice-trust-service/internal/services"
)

// DefaultMaxConcurrency bounds how many documents are in flight at once
// when no explicit limit is configured.
const DefaultMaxConcurrency = 3

// Document is one uploaded file heading into the pipeline.
type Document struct {
	Filename string
	MimeType string
	Data     []byte
}

// Processor runs the extract, validate, score, route pipeline over batches
// of documents.
type Processor struct {
	provider       ai.Provider
	validator      *services.Validator
	maxConcurrency int
}

// NewProcessor creates a processor. maxConcurrency values below 1 fall back
// to the default.
func NewProcessor(provider ai.Provider, validator *services.Validator, maxConcurrency int) *Processor {
	if maxConcurrency < 1 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Processor{
		provider:       provider,
		validator:      validator,
		maxConcurrency: maxConcurrency,
	}
}

// ProcessBatch processes every document concurrently, isolating per-document
// failures, and returns the deterministic aggregate report. An empty batch
// is an error.
func (p *Processor) ProcessBatch(ctx context.Context, docs []Document) (*models.BatchReport, error) {
	if len(docs) == 0 {
		return nil, errors.New("no documents provided")
	}

	start := time.Now()
	zap.L().Info("starting batch processing",
		zap.Int("files", len(docs)),
		zap.String("provider", p.provider.Name()),
		zap.Int("concurrency", p.maxConcurrency))

	// Results land at the index of their document, so aggregation order
	// never depends on completion order.
	processed := make([]*models.ProcessedInvoice, len(docs))
	failures := make([]error, len(docs))

	var g errgroup.Group
	g.SetLimit(p.maxConcurrency)

	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			result, err := p.ProcessDocument(ctx, doc)
			if err != nil {
				zap.L().Warn("document processing failed",
					zap.String("filename", doc.Filename),
					zap.Error(err))
				failures[i] = err
				return nil
			}
			processed[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := p.aggregate(processed, failures)
	report.Performance.TotalTime = float64(time.Since(start).Milliseconds())
	report.Performance.FilesReceived = len(docs)
	report.Performance.Concurrency = p.maxConcurrency
	if report.Summary.TotalInvoicesProcessed > 0 {
		report.Performance.PerInvoiceAvg = report.Performance.TotalTime / float64(report.Summary.TotalInvoicesProcessed)
	}

	zap.L().Info("batch processing complete",
		zap.Int("successful", report.Performance.Successful),
		zap.Int("failed", report.Performance.Failed),
		zap.Int("auto_approved", report.Summary.AutoApprovedCount),
		zap.Int("needs_review", report.Summary.NeedsReviewCount))

	return report, nil
}

// ProcessDocument runs a single document through extraction and the full
// trust layer.
func (p *Processor) ProcessDocument(ctx context.Context, doc Document) (*models.ProcessedInvoice, error) {
	start := time.Now()
	invoiceUID := "inv-" + uuid.New().String()

	extraction, err := p.provider.ExtractInvoice(ctx, doc.Data, doc.Filename, doc.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", doc.Filename, err)
	}
	raw := extraction.Document
	if raw.Error != "" {
		return nil, fmt.Errorf("failed to process %s: failed to extract invoice data: %s", doc.Filename, raw.Error)
	}

	record := buildRecord(invoiceUID, doc.Filename, raw)

	extractionConf := p.validator.ScoreExtraction(raw)
	mathResult := p.validator.ValidateInvoiceMath(record)
	validationConf := p.validator.ValidationConfidence(mathResult)

	overall := p.validator.Policy().FuseConfidence(validationConf, extractionConf.OverallConfidence)
	decision := p.validator.DetermineReviewStatus(overall, mathResult, services.HasCriticalFields(record))

	perf := map[string]float64{}
	for k, v := range extraction.Performance {
		perf[k] = v
	}
	perf["extraction_time"] = extraction.Duration * 1000
	perf["total_invoice_time"] = float64(time.Since(start).Milliseconds())

	return &models.ProcessedInvoice{
		InvoiceRecord: record,
		Confidence: models.ConfidenceBreakdown{
			Overall:           round2(overall),
			Extraction:        extractionConf.OverallConfidence,
			Validation:        round2(validationConf),
			ExtractionDetails: extractionConf,
		},
		MathValidation: mathResult,
		ReviewStatus:   decision.Status,
		ReviewReason:   decision.Reason,
		ReviewMessage:  decision.Message,
		AutoApprove:    decision.AutoApprove,
		Provider:       p.provider.Name(),
		Performance:    perf,
	}, nil
}

// buildRecord normalizes an untrusted extraction into the per-document
// record the validation layer works on.
func buildRecord(invoiceUID, filename string, raw models.RawExtraction) models.InvoiceRecord {
	record := models.InvoiceRecord{
		InvoiceUID:    invoiceUID,
		Filename:      filename,
		InvoiceNumber: "Unknown",
		Vendor:        "Unknown Vendor",
		Date:          "Unknown Date",
		OrderID:       raw.OrderID,
		LineItems:     raw.LineItems,
	}
	if record.LineItems == nil {
		record.LineItems = []models.LineItemRaw{}
	}

	if raw.InvoiceNumber != "" {
		record.InvoiceNumber = raw.InvoiceNumber
	}
	if raw.Date != "" {
		record.Date = raw.Date
	}
	if raw.Vendor != nil && raw.Vendor.Name != "" {
		record.Vendor = raw.Vendor.Name
	}

	if fin := raw.Financial; fin != nil {
		record.Subtotal = services.ParseAmount(fin.Subtotal.String())
		record.Shipping = services.ParseAmount(fin.Shipping.String())
		record.Tax = services.ParseAmount(fin.Tax.String())

		record.TotalAmount = services.ParseAmount(fin.Total.String())
		if record.TotalAmount == 0 {
			record.TotalAmount = services.ParseAmount(fin.BalanceDue.String())
		}

		if fin.Discount != nil {
			record.DiscountAmount = services.ParseAmount(fin.Discount.Amount.String())
		}
	}

	return record
}

// aggregate folds per-document results into the batch report. Failed
// documents contribute an error string and nothing else.
func (p *Processor) aggregate(processed []*models.ProcessedInvoice, failures []error) *models.BatchReport {
	report := &models.BatchReport{
		Summary: models.BatchSummary{
			Vendors:          []string{},
			ProcessingErrors: []string{},
		},
		LineItems: []models.AggregatedLineItem{},
		Invoices:  map[string]models.ProcessedInvoice{},
	}

	vendorSet := map[string]struct{}{}
	totalAmount := decimal.Zero
	confidenceSum := 0.0

	for i, invoice := range processed {
		if invoice == nil {
			if failures[i] != nil {
				report.Summary.ProcessingErrors = append(report.Summary.ProcessingErrors, failures[i].Error())
				report.Performance.Failed++
			}
			continue
		}
		report.Performance.Successful++
		report.Summary.TotalInvoicesProcessed++

		totalAmount = totalAmount.Add(decimal.NewFromFloat(invoice.TotalAmount))
		vendorSet[invoice.Vendor] = struct{}{}
		confidenceSum += invoice.Confidence.Overall

		if invoice.ReviewStatus == models.StatusAutoApproved {
			report.Summary.AutoApprovedCount++
		} else {
			report.Summary.NeedsReviewCount++
		}
		if !invoice.MathValidation.OverallValid {
			report.Summary.MathErrorsCount++
		}

		for idx, item := range invoice.LineItems {
			report.LineItems = append(report.LineItems, flattenLineItem(invoice, idx, item))
		}

		report.Invoices[invoice.InvoiceUID] = *invoice
	}

	for vendor := range vendorSet {
		report.Summary.Vendors = append(report.Summary.Vendors, vendor)
	}
	sort.Strings(report.Summary.Vendors)

	report.Summary.TotalAmount = formatAmount(totalAmount)
	if report.Summary.TotalInvoicesProcessed > 0 {
		report.Summary.AverageConfidence = round2(confidenceSum / float64(report.Summary.TotalInvoicesProcessed))
	}

	return report
}

// flattenLineItem produces one row of the cross-invoice item list, carrying
// the per-item validation verdict when one exists.
func flattenLineItem(invoice *models.ProcessedInvoice, idx int, item models.LineItemRaw) models.AggregatedLineItem {
	row := models.AggregatedLineItem{
		ID:                  uuid.New().String(),
		Item:                item.Name(),
		Description:         item.Description,
		ProductCode:         item.ProductCode,
		Quantity:            item.Quantity.String(),
		Rate:                item.Rate.String(),
		Amount:              item.Amount.String(),
		Vendor:              invoice.Vendor,
		Date:                invoice.Date,
		SourceInvoiceID:     invoice.InvoiceUID,
		SourceInvoiceNumber: invoice.InvoiceNumber,
	}

	if idx < len(invoice.MathValidation.LineItems) {
		validation := invoice.MathValidation.LineItems[idx]
		row.Confidence = validation.Confidence
		row.MathValid = validation.Valid
		row.CalculatedAmount = validation.CalculatedAmount
	} else {
		row.Confidence = invoice.Confidence.Overall
		row.MathValid = true
	}

	return row
}

// formatAmount renders a decimal as a comma-grouped string with two
// decimals, e.g. "1,234.56".
func formatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)

	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	intPart := s[:len(s)-3]
	fracPart := s[len(s)-3:]

	var b strings.Builder
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}

	out := b.String() + fracPart
	if negative {
		out = "-" + out
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
