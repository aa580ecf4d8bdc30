package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/facturaia/invoice-trust-service/internal/models"
)

func validMath() models.MathValidationResult {
	return models.MathValidationResult{
		LineItemsValid: true,
		SubtotalValid:  true,
		TotalValid:     true,
		OverallValid:   true,
	}
}

func TestReviewMathFailureAlwaysWins(t *testing.T) {
	v := newTestValidator()

	// Even perfect confidence cannot override a math failure.
	decision := v.DetermineReviewStatus(0.99, models.MathValidationResult{OverallValid: false}, true)

	assert.Equal(t, models.StatusRequiresReview, decision.Status)
	assert.Equal(t, models.ReasonMathValidationFailed, decision.Reason)
	assert.Equal(t, models.SeverityCritical, decision.Severity)
	assert.False(t, decision.AutoApprove)
}

func TestReviewMissingCriticalFields(t *testing.T) {
	v := newTestValidator()

	decision := v.DetermineReviewStatus(0.99, validMath(), false)

	assert.Equal(t, models.StatusRequiresReview, decision.Status)
	assert.Equal(t, models.ReasonMissingCriticalFields, decision.Reason)
	assert.False(t, decision.AutoApprove)
}

func TestReviewThresholds(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		confidence float64
		status     string
		reason     string
		approve    bool
	}{
		{0.95, models.StatusAutoApproved, models.ReasonHighConfidenceAndValidated, true},
		{0.99, models.StatusAutoApproved, models.ReasonHighConfidenceAndValidated, true},
		{0.949, models.StatusApprovedWithVerification, models.ReasonMathValidatedMediumConfidence, true},
		{0.85, models.StatusApprovedWithVerification, models.ReasonMathValidatedMediumConfidence, true},
		{0.849, models.StatusRequiresReview, models.ReasonBelowConfidenceThreshold, false},
		{0.10, models.StatusRequiresReview, models.ReasonBelowConfidenceThreshold, false},
	}

	for _, tt := range tests {
		decision := v.DetermineReviewStatus(tt.confidence, validMath(), true)
		assert.Equal(t, tt.status, decision.Status, "confidence %v", tt.confidence)
		assert.Equal(t, tt.reason, decision.Reason, "confidence %v", tt.confidence)
		assert.Equal(t, tt.approve, decision.AutoApprove, "confidence %v", tt.confidence)
	}
}

func TestReviewAutoApprovedSeverityNone(t *testing.T) {
	v := newTestValidator()

	decision := v.DetermineReviewStatus(0.97, validMath(), true)

	assert.Equal(t, models.SeverityNone, decision.Severity)
	assert.NotEmpty(t, decision.Message)
}

func TestHasCriticalFields(t *testing.T) {
	base := models.InvoiceRecord{
		InvoiceNumber: "INV-1",
		Date:          "2024-01-01",
		TotalAmount:   100.0,
	}
	assert.True(t, HasCriticalFields(base))

	missingNumber := base
	missingNumber.InvoiceNumber = "Unknown"
	assert.False(t, HasCriticalFields(missingNumber))

	missingDate := base
	missingDate.Date = "Unknown Date"
	assert.False(t, HasCriticalFields(missingDate))

	zeroTotal := base
	zeroTotal.TotalAmount = 0
	assert.False(t, HasCriticalFields(zeroTotal))

	emptyNumber := base
	emptyNumber.InvoiceNumber = ""
	assert.False(t, HasCriticalFields(emptyNumber))
}
