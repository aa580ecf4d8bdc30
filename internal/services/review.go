package services

import "github.com/facturaia/invoice-trust-service/internal/models"

// HasCriticalFields reports whether the record carries the fields an
// accounting system cannot book without: a real invoice number, a real
// date, and a positive total.
func HasCriticalFields(doc models.InvoiceRecord) bool {
	if doc.InvoiceNumber == "" || doc.InvoiceNumber == "Unknown" {
		return false
	}
	if doc.Date == "" || doc.Date == "Unknown Date" {
		return false
	}
	return doc.TotalAmount > 0
}

// DetermineReviewStatus routes a document to auto-approval or manual
// review. The rules are strict and ordered: math errors always force
// review regardless of confidence, missing critical fields always force
// review, and only then do the confidence thresholds apply.
func (v *Validator) DetermineReviewStatus(confidence float64, math models.MathValidationResult, hasCriticalFields bool) models.ReviewDecision {
	if !math.OverallValid {
		return models.ReviewDecision{
			Status:      models.StatusRequiresReview,
			Reason:      models.ReasonMathValidationFailed,
			Severity:    models.SeverityCritical,
			AutoApprove: false,
			Message:     "Mathematical discrepancies detected. Manual verification required.",
		}
	}

	if !hasCriticalFields {
		return models.ReviewDecision{
			Status:      models.StatusRequiresReview,
			Reason:      models.ReasonMissingCriticalFields,
			Severity:    models.SeverityCritical,
			AutoApprove: false,
			Message:     "Required fields missing. Manual entry required.",
		}
	}

	if confidence >= v.policy.AutoApproveThreshold {
		return models.ReviewDecision{
			Status:      models.StatusAutoApproved,
			Reason:      models.ReasonHighConfidenceAndValidated,
			Severity:    models.SeverityNone,
			AutoApprove: true,
			Message:     "All validations passed. Approved automatically.",
		}
	}

	if confidence >= v.policy.VerifyThreshold {
		return models.ReviewDecision{
			Status:      models.StatusApprovedWithVerification,
			Reason:      models.ReasonMathValidatedMediumConfidence,
			Severity:    models.SeverityLow,
			AutoApprove: true,
			Message:     "Math validated but some fields have medium confidence. Review recommended but not required.",
		}
	}

	return models.ReviewDecision{
		Status:      models.StatusRequiresReview,
		Reason:      models.ReasonBelowConfidenceThreshold,
		Severity:    models.SeverityMedium,
		AutoApprove: false,
		Message:     "Confidence below threshold. Manual review required.",
	}
}
