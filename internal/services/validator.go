package services

import (
	"fmt"
	"math"

	"github.com/facturaia/invoice-trust-service/internal/models"
)

// Validator performs arithmetic validation, confidence scoring and review
// routing for extracted invoices.
type Validator struct {
	policy ValidationPolicy
}

// NewValidator creates a validator with the given policy.
func NewValidator(policy ValidationPolicy) *Validator {
	return &Validator{policy: policy}
}

// Policy returns the active validation policy.
func (v *Validator) Policy() ValidationPolicy {
	return v.policy
}

// ValidateLineItem checks that quantity × rate matches the stated amount for
// one line item. Rate and amount go through the currency normalizer; quantity
// must be a plain number, and a quantity that cannot be parsed fails the item
// with zero confidence.
func (v *Validator) ValidateLineItem(item models.LineItemRaw) models.LineItemValidation {
	qtyRaw := item.Quantity.String()
	if !item.Quantity.Present() {
		qtyRaw = "0"
	}

	quantity, err := parseQuantity(qtyRaw)
	if err != nil {
		return models.LineItemValidation{
			Valid:      false,
			Confidence: 0.0,
			Error:      fmt.Sprintf("parse error: invalid quantity %q", item.Quantity.String()),
		}
	}

	rate := ParseAmount(item.Rate.String())
	statedAmount := ParseAmount(item.Amount.String())

	calculated := quantity * rate
	difference := math.Abs(calculated - statedAmount)
	valid := difference <= v.policy.AmountTolerance

	var confidence float64
	switch {
	case valid:
		confidence = 0.99
	case difference < 0.10:
		confidence = 0.90 // close, might be rounding
	case difference < 1.00:
		confidence = 0.70 // small discrepancy
	default:
		confidence = 0.30 // large discrepancy
	}

	calcRounded := round2(calculated)
	diffRounded := round2(difference)
	return models.LineItemValidation{
		Valid:            valid,
		Quantity:         &quantity,
		Rate:             &rate,
		CalculatedAmount: &calcRounded,
		StatedAmount:     &statedAmount,
		Difference:       &diffRounded,
		Confidence:       confidence,
	}
}

// ValidateInvoiceMath checks the whole arithmetic chain of a document:
// every line item, the subtotal against the line item sum, and the grand
// total against subtotal + shipping - discount + tax. Checks on stated
// values only run when the document actually states them, so a sparse
// extraction is not penalized for fields it never claimed.
func (v *Validator) ValidateInvoiceMath(doc models.InvoiceRecord) models.MathValidationResult {
	result := models.MathValidationResult{
		LineItemsValid: true,
		SubtotalValid:  true,
		TotalValid:     true,
		OverallValid:   true,
		LineItems:      []models.LineItemValidation{},
		Errors:         []models.ValidationIssue{},
		Warnings:       []models.ValidationIssue{},
	}

	if len(doc.LineItems) == 0 {
		result.Warnings = append(result.Warnings, models.ValidationIssue{
			Severity: models.SeverityMedium,
			Field:    "line_items",
			Message:  "No line items found in invoice",
		})
	}

	lineItemSum := 0.0
	for i, item := range doc.LineItems {
		validation := v.ValidateLineItem(item)
		result.LineItems = append(result.LineItems, validation)

		if !validation.Valid {
			result.LineItemsValid = false
			result.Errors = append(result.Errors, lineItemIssue(i, item, validation))
		}

		// Stated amounts drive the subtotal check even when the item
		// itself failed, so one bad row does not hide a subtotal gap.
		if validation.StatedAmount != nil {
			lineItemSum += *validation.StatedAmount
		}
	}
	result.CalculatedSubtotal = round2(lineItemSum)

	statedSubtotal := doc.Subtotal
	if statedSubtotal > 0 {
		result.StatedSubtotal = &statedSubtotal
		difference := math.Abs(lineItemSum - statedSubtotal)

		if difference >= v.policy.AmountTolerance {
			result.SubtotalValid = false
			calc := round2(lineItemSum)
			diff := round2(difference)
			result.Errors = append(result.Errors, models.ValidationIssue{
				Severity: models.SeverityCritical,
				Field:    "subtotal",
				Message: fmt.Sprintf("Subtotal mismatch: Line items sum to $%.2f, but invoice shows $%.2f",
					lineItemSum, statedSubtotal),
				Calculated:     &calc,
				Stated:         &statedSubtotal,
				Difference:     &diff,
				ActionRequired: "VERIFY_WITH_PDF",
			})
		}
	}

	statedTotal := doc.TotalAmount
	if statedTotal > 0 {
		subtotalForCalc := lineItemSum
		if statedSubtotal > 0 {
			subtotalForCalc = statedSubtotal
		}

		calculatedTotal := subtotalForCalc + doc.Shipping - doc.DiscountAmount + doc.Tax
		difference := math.Abs(calculatedTotal - statedTotal)

		if difference >= v.policy.AmountTolerance {
			result.TotalValid = false
			diff := round2(difference)
			result.Errors = append(result.Errors, models.ValidationIssue{
				Severity: models.SeverityCritical,
				Field:    "total",
				Message: fmt.Sprintf("Total mismatch: Calculated $%.2f, but invoice shows $%.2f",
					calculatedTotal, statedTotal),
				Breakdown: &models.TotalBreakdown{
					Subtotal:        subtotalForCalc,
					Shipping:        doc.Shipping,
					Discount:        doc.DiscountAmount,
					Tax:             doc.Tax,
					CalculatedTotal: round2(calculatedTotal),
					StatedTotal:     statedTotal,
				},
				Difference:     &diff,
				ActionRequired: "VERIFY_WITH_PDF",
			})
		}

		calcRounded := round2(calculatedTotal)
		diffRounded := round2(difference)
		result.CalculatedTotal = &calcRounded
		result.StatedTotal = &statedTotal
		result.TotalDifference = &diffRounded
	}

	result.OverallValid = result.LineItemsValid && result.SubtotalValid && result.TotalValid
	return result
}

func lineItemIssue(index int, item models.LineItemRaw, validation models.LineItemValidation) models.ValidationIssue {
	name := item.Name()
	if name == "" {
		name = "Unknown"
	}

	message := fmt.Sprintf("Line item could not be parsed: %s", validation.Error)
	if validation.Error == "" {
		message = fmt.Sprintf("Line item calculation error: %v × %v = %v, but invoice shows %v",
			*validation.Quantity, *validation.Rate, *validation.CalculatedAmount, *validation.StatedAmount)
	}

	return models.ValidationIssue{
		Severity:       models.SeverityCritical,
		Field:          fmt.Sprintf("line_item_%d", index),
		ItemName:       name,
		Message:        message,
		Difference:     validation.Difference,
		ActionRequired: "VERIFY_WITH_PDF",
	}
}
