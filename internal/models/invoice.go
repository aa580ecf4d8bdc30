package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexValue holds a JSON value that the extraction provider may return as a
// number, a quoted string, or null. Providers are inconsistent about this, so
// the raw representation is kept and parsed downstream.
type FlexValue struct {
	raw     string
	present bool
}

// NewFlexString builds a FlexValue from a plain string. Mostly used in tests
// and when building records by hand.
func NewFlexString(s string) FlexValue {
	return FlexValue{raw: s, present: true}
}

// NewFlexNumber builds a FlexValue from a float.
func NewFlexNumber(f float64) FlexValue {
	return FlexValue{raw: trimFloat(f), present: true}
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	return s
}

// UnmarshalJSON accepts numbers, strings, booleans and null. Numbers keep
// their original textual form so no precision is lost before parsing.
func (f *FlexValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}

	switch val := v.(type) {
	case nil:
		f.raw = ""
		f.present = false
	case string:
		f.raw = val
		f.present = true
	case json.Number:
		f.raw = val.String()
		f.present = true
	case bool:
		f.raw = fmt.Sprintf("%t", val)
		f.present = true
	default:
		f.raw = fmt.Sprintf("%v", val)
		f.present = true
	}
	return nil
}

// MarshalJSON re-emits the value as a string (or null when absent). The
// aggregate report always carries line item numerics as strings.
func (f FlexValue) MarshalJSON() ([]byte, error) {
	if !f.present {
		return []byte("null"), nil
	}
	return json.Marshal(f.raw)
}

// String returns the raw textual form, empty when the value was absent.
func (f FlexValue) String() string {
	return f.raw
}

// Present reports whether the field carried any value at all.
func (f FlexValue) Present() bool {
	return f.present
}

// RawExtraction is the document structure returned by an AI provider. Every
// field is untrusted: missing keys, nulls, and stringified numbers are all
// expected.
type RawExtraction struct {
	InvoiceNumber string            `json:"invoice_number,omitempty"`
	Date          string            `json:"date,omitempty"`
	Vendor        *VendorInfo       `json:"vendor,omitempty"`
	Customer      *CustomerInfo     `json:"customer,omitempty"`
	ShippingInfo  *ShippingInfo     `json:"shipping_info,omitempty"`
	OrderID       string            `json:"order_id,omitempty"`
	LineItems     []LineItemRaw     `json:"line_items"`
	Financial     *FinancialSummary `json:"financial_summary,omitempty"`
	PaymentTerms  string            `json:"payment_terms,omitempty"`
	Notes         string            `json:"notes,omitempty"`

	// Error is set by providers that report extraction failure inside the
	// JSON payload instead of failing the request.
	Error string `json:"error,omitempty"`
}

// VendorInfo identifies the issuing party.
type VendorInfo struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// CustomerInfo identifies the billed party.
type CustomerInfo struct {
	Name           string `json:"name,omitempty"`
	BillingAddress string `json:"billing_address,omitempty"`
}

// ShippingInfo carries the delivery block when the document has one.
type ShippingInfo struct {
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	ShipMode   string `json:"ship_mode,omitempty"`
}

// LineItemRaw is a single extracted line item. Quantity, rate and amount stay
// flexible because providers return them as numbers or currency strings.
type LineItemRaw struct {
	ItemName    string    `json:"item_name,omitempty"`
	Item        string    `json:"item,omitempty"` // alternate key some models emit
	Description string    `json:"description,omitempty"`
	ProductCode string    `json:"product_code,omitempty"`
	Quantity    FlexValue `json:"quantity"`
	Rate        FlexValue `json:"rate"`
	Amount      FlexValue `json:"amount"`
}

// Name returns the item name, falling back to the alternate key.
func (li LineItemRaw) Name() string {
	if li.ItemName != "" {
		return li.ItemName
	}
	return li.Item
}

// FinancialSummary is the money block of an extraction.
type FinancialSummary struct {
	Subtotal   FlexValue `json:"subtotal"`
	Discount   *Discount `json:"discount,omitempty"`
	Shipping   FlexValue `json:"shipping"`
	Tax        FlexValue `json:"tax"`
	Total      FlexValue `json:"total"`
	BalanceDue FlexValue `json:"balance_due"`
}

// Discount carries either a percentage, an absolute amount, or both.
type Discount struct {
	Percent FlexValue `json:"percent"`
	Amount  FlexValue `json:"amount"`
}

// InvoiceRecord is the normalized per-document view built from a raw
// extraction. Financial fields are parsed to floats once, line items keep
// their flexible form for per-item validation.
type InvoiceRecord struct {
	InvoiceUID     string        `json:"invoice_uid"`
	Filename       string        `json:"filename"`
	InvoiceNumber  string        `json:"invoice_number"`
	Vendor         string        `json:"vendor"`
	Date           string        `json:"date"`
	OrderID        string        `json:"order_id,omitempty"`
	TotalAmount    float64       `json:"total_amount"`
	Subtotal       float64       `json:"subtotal"`
	Shipping       float64       `json:"shipping"`
	DiscountAmount float64       `json:"discount_amount"`
	Tax            float64       `json:"tax"`
	LineItems      []LineItemRaw `json:"line_items"`
}
