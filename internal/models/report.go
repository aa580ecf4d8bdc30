package models

// ProcessedInvoice is the pipeline output for one successfully processed
// document: the normalized record plus every verdict computed over it.
type ProcessedInvoice struct {
	InvoiceRecord

	Confidence     ConfidenceBreakdown  `json:"confidence"`
	MathValidation MathValidationResult `json:"math_validation"`
	ReviewStatus   string               `json:"review_status"`
	ReviewReason   string               `json:"review_reason"`
	ReviewMessage  string               `json:"review_message"`
	AutoApprove    bool                 `json:"auto_approve"`
	Provider       string               `json:"provider,omitempty"`

	// Performance holds advisory per-stage timings in seconds.
	Performance map[string]float64 `json:"performance,omitempty"`
}

// AggregatedLineItem is one row of the cross-invoice flattened item list.
// Every row gets a fresh unique id plus enough provenance to trace it back
// to its source document.
type AggregatedLineItem struct {
	ID                  string   `json:"id"`
	Item                string   `json:"item"`
	Description         string   `json:"description,omitempty"`
	ProductCode         string   `json:"product_code,omitempty"`
	Quantity            string   `json:"quantity"`
	Rate                string   `json:"rate"`
	Amount              string   `json:"amount"`
	Vendor              string   `json:"vendor"`
	Date                string   `json:"date"`
	SourceInvoiceID     string   `json:"source_invoice_id"`
	SourceInvoiceNumber string   `json:"source_invoice_number"`
	Confidence          float64  `json:"confidence"`
	MathValid           bool     `json:"math_valid"`
	CalculatedAmount    *float64 `json:"calculated_amount,omitempty"`
}

// BatchSummary is the headline numbers of a batch run.
type BatchSummary struct {
	TotalAmount            string   `json:"total_amount"` // comma-grouped, 2 decimals
	TotalInvoicesProcessed int      `json:"total_invoices_processed"`
	Vendors                []string `json:"vendors"`
	ProcessingErrors       []string `json:"processing_errors"`
	AutoApprovedCount      int      `json:"auto_approved_count"`
	NeedsReviewCount       int      `json:"needs_review_count"`
	MathErrorsCount        int      `json:"math_errors_count"`
	AverageConfidence      float64  `json:"average_confidence"`
}

// BatchPerformance carries advisory wall-clock metrics for the whole run.
type BatchPerformance struct {
	TotalTime     float64 `json:"total_time"`
	PerInvoiceAvg float64 `json:"per_invoice_avg"`
	FilesReceived int     `json:"files_received"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	Concurrency   int     `json:"concurrency"`
}

// BatchReport is the deterministic aggregate for a batch of documents.
type BatchReport struct {
	Summary     BatchSummary                `json:"summary"`
	LineItems   []AggregatedLineItem        `json:"line_items"`
	Invoices    map[string]ProcessedInvoice `json:"invoices"`
	Performance BatchPerformance            `json:"performance_metrics"`
}
