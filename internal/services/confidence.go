package services

import (
	"strconv"
	"strings"

	"github.com/facturaia/invoice-trust-service/internal/models"
)

// Weights for the extraction quality components.
const (
	presenceWeight     = 0.30
	qualityWeight      = 0.25
	completenessWeight = 0.20
	consistencyWeight  = 0.25
)

// ScoreExtraction rates the structural quality of a raw extraction without
// looking at arithmetic. Four components feed the score: presence of the
// critical fields, plausibility of the values, overall completeness, and
// internal consistency of the line items.
func (v *Validator) ScoreExtraction(raw models.RawExtraction) models.ExtractionConfidenceResult {
	presence := scorePresence(raw)
	quality := scoreQuality(raw)
	completeness := scoreCompleteness(raw)
	consistency := scoreConsistency(raw.LineItems)

	overall := presence*presenceWeight +
		quality*qualityWeight +
		completeness*completenessWeight +
		consistency*consistencyWeight

	return models.ExtractionConfidenceResult{
		OverallConfidence:    round2(overall),
		FieldPresenceScore:   round2(presence),
		FieldQualityScore:    round2(quality),
		CompletenessScore:    round2(completeness),
		DataConsistencyScore: round2(consistency),
	}
}

// scorePresence checks the three fields an invoice cannot live without.
func scorePresence(raw models.RawExtraction) float64 {
	present := 0
	if raw.InvoiceNumber != "" {
		present++
	}
	if raw.Date != "" {
		present++
	}
	if raw.Financial != nil && flexTruthy(raw.Financial.Total) {
		present++
	}
	return float64(present) / 3.0
}

// scoreQuality runs plausibility checks on whatever values are present.
// Each attempted check contributes to the denominator; a field that is
// absent is simply not checked. With nothing to check the score is a
// neutral 0.5.
func scoreQuality(raw models.RawExtraction) float64 {
	score := 0.0
	checks := 0

	if raw.InvoiceNumber != "" {
		score += 1.0
		checks++
	}
	if raw.Date != "" {
		score += 0.9
		checks++
	}

	if raw.Financial != nil {
		for _, value := range []models.FlexValue{
			raw.Financial.Total,
			raw.Financial.Subtotal,
			raw.Financial.Shipping,
			raw.Financial.Tax,
		} {
			if !value.Present() {
				continue
			}
			// Only a value that parses as a plain number counts as an
			// attempted check. Currency-formatted strings are scored
			// by the math validator instead.
			num, err := strconv.ParseFloat(strings.TrimSpace(value.String()), 64)
			if err != nil {
				continue
			}
			if num >= 0 {
				score += 1.0
			}
			checks++
		}
	}

	if checks == 0 {
		return 0.5
	}
	return score / float64(checks)
}

// scoreCompleteness counts how many of the eight top-level fields came
// back non-empty. Line items only count when at least one item exists,
// the financial summary only when it carries at least one amount.
func scoreCompleteness(raw models.RawExtraction) float64 {
	const totalFields = 8
	present := 0

	if raw.InvoiceNumber != "" {
		present++
	}
	if raw.Date != "" {
		present++
	}
	if raw.Vendor != nil {
		present++
	}
	if raw.Customer != nil {
		present++
	}
	if raw.ShippingInfo != nil {
		present++
	}
	if raw.OrderID != "" {
		present++
	}
	if len(raw.LineItems) > 0 {
		present++
	}
	if raw.Financial != nil {
		f := raw.Financial
		if f.Total.Present() || f.Subtotal.Present() || f.Shipping.Present() || f.Tax.Present() {
			present++
		}
	}

	return float64(present) / float64(totalFields)
}

// scoreConsistency is the fraction of line items that carry a name plus
// numeric quantity, rate and amount. No items means zero consistency.
func scoreConsistency(items []models.LineItemRaw) float64 {
	if len(items) == 0 {
		return 0.0
	}

	valid := 0
	for _, item := range items {
		if !item.Quantity.Present() || !item.Rate.Present() || !item.Amount.Present() {
			continue
		}
		if item.Name() == "" {
			continue
		}
		if isPlainNumber(item.Quantity) && isPlainNumber(item.Rate) && isPlainNumber(item.Amount) {
			valid++
		}
	}
	return float64(valid) / float64(len(items))
}

func isPlainNumber(f models.FlexValue) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(f.String()), 64)
	return err == nil
}

// flexTruthy reports whether a flexible value carries something non-empty
// and, when numeric, non-zero.
func flexTruthy(f models.FlexValue) bool {
	if !f.Present() || f.String() == "" {
		return false
	}
	if num, err := strconv.ParseFloat(strings.TrimSpace(f.String()), 64); err == nil && num == 0 {
		return false
	}
	return true
}

// ValidationConfidence collapses a math validation result into a single
// score. A fully valid document scores 1.0, and each critical finding
// drags the score down sharply.
func (v *Validator) ValidationConfidence(result models.MathValidationResult) float64 {
	if result.OverallValid {
		return 1.0
	}

	switch result.CriticalErrorCount() {
	case 0:
		return 0.95 // only warnings
	case 1:
		return 0.60
	case 2:
		return 0.40
	default:
		return 0.20
	}
}
