package models

// Issue severities.
const (
	SeverityCritical = "CRITICAL"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
	SeverityNone     = "NONE"
)

// Review statuses.
const (
	StatusAutoApproved             = "AUTO_APPROVED"
	StatusApprovedWithVerification = "APPROVED_WITH_VERIFICATION"
	StatusRequiresReview           = "REQUIRES_REVIEW"
)

// Review reasons.
const (
	ReasonMathValidationFailed          = "MATH_VALIDATION_FAILED"
	ReasonMissingCriticalFields         = "MISSING_CRITICAL_FIELDS"
	ReasonHighConfidenceAndValidated    = "HIGH_CONFIDENCE_AND_VALIDATED"
	ReasonMathValidatedMediumConfidence = "MATH_VALIDATED_MEDIUM_CONFIDENCE"
	ReasonBelowConfidenceThreshold      = "BELOW_CONFIDENCE_THRESHOLD"
)

// LineItemValidation is the arithmetic check result for one line item. The
// numeric fields are nil when the inputs could not be parsed.
type LineItemValidation struct {
	Valid            bool     `json:"valid"`
	Quantity         *float64 `json:"quantity"`
	Rate             *float64 `json:"rate"`
	CalculatedAmount *float64 `json:"calculated_amount"`
	StatedAmount     *float64 `json:"stated_amount"`
	Difference       *float64 `json:"difference"`
	Confidence       float64  `json:"confidence"`
	Error            string   `json:"error,omitempty"`
}

// TotalBreakdown shows how an expected grand total was computed.
type TotalBreakdown struct {
	Subtotal        float64 `json:"subtotal"`
	Shipping        float64 `json:"shipping"`
	Discount        float64 `json:"discount"`
	Tax             float64 `json:"tax"`
	CalculatedTotal float64 `json:"calculated_total"`
	StatedTotal     float64 `json:"stated_total"`
}

// ValidationIssue is one machine-readable finding from math validation.
type ValidationIssue struct {
	Severity       string          `json:"severity"`
	Field          string          `json:"field"`
	ItemName       string          `json:"item_name,omitempty"`
	Message        string          `json:"message"`
	Calculated     *float64        `json:"calculated,omitempty"`
	Stated         *float64        `json:"stated,omitempty"`
	Difference     *float64        `json:"difference,omitempty"`
	Breakdown      *TotalBreakdown `json:"calculation_breakdown,omitempty"`
	ActionRequired string          `json:"action_required,omitempty"`
}

// MathValidationResult is the full arithmetic verdict for one document.
// Stated fields stay nil when the document did not carry the corresponding
// value, so consumers can tell "absent" from "zero".
type MathValidationResult struct {
	LineItemsValid     bool                 `json:"line_items_valid"`
	SubtotalValid      bool                 `json:"subtotal_valid"`
	TotalValid         bool                 `json:"total_valid"`
	OverallValid       bool                 `json:"overall_valid"`
	LineItems          []LineItemValidation `json:"line_items"`
	Errors             []ValidationIssue    `json:"errors"`
	Warnings           []ValidationIssue    `json:"warnings"`
	CalculatedSubtotal float64              `json:"calculated_subtotal"`
	StatedSubtotal     *float64             `json:"stated_subtotal"`
	CalculatedTotal    *float64             `json:"calculated_total,omitempty"`
	StatedTotal        *float64             `json:"stated_total,omitempty"`
	TotalDifference    *float64             `json:"total_difference,omitempty"`
}

// CriticalErrorCount returns how many findings carry CRITICAL severity.
func (m MathValidationResult) CriticalErrorCount() int {
	n := 0
	for _, e := range m.Errors {
		if e.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// ExtractionConfidenceResult breaks extraction quality into its four
// components plus the weighted overall score. All values are in [0, 1],
// rounded to two decimals.
type ExtractionConfidenceResult struct {
	OverallConfidence    float64 `json:"overall_confidence"`
	FieldPresenceScore   float64 `json:"field_presence_score"`
	FieldQualityScore    float64 `json:"field_quality_score"`
	CompletenessScore    float64 `json:"completeness_score"`
	DataConsistencyScore float64 `json:"data_consistency_score"`
}

// ReviewDecision is the routing verdict for one document.
type ReviewDecision struct {
	Status      string `json:"status"`
	Reason      string `json:"reason"`
	Severity    string `json:"severity"`
	AutoApprove bool   `json:"auto_approve"`
	Message     string `json:"message"`
}

// ConfidenceBreakdown carries the fused score plus both inputs.
type ConfidenceBreakdown struct {
	Overall           float64                    `json:"overall"`
	Extraction        float64                    `json:"extraction"`
	Validation        float64                    `json:"validation"`
	ExtractionDetails ExtractionConfidenceResult `json:"extraction_details"`
}
