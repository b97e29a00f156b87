package entity

import (
	"github.com/joseph-ayodele/payorders/constants"
)

// Field keys shared by extraction results, patches and discrepancies.
const (
	FieldBillingDate = "billingDate"
	FieldCompany     = "company"
	FieldCreditor    = "creditor"
	FieldConcept     = "concept"
	FieldDescription = "description"
	FieldBaseAmount  = "baseAmount"
	FieldTaxPresent  = "taxPresent"
	FieldTaxAmount   = "taxAmount"
	FieldTotalAmount = "totalAmount"
)

// ExtractedFields is the best-effort reading of one billing document.
// A nil field was not produced by the service and is never compared.
// Amount fields hold either a JSON number or a numeral string.
type ExtractedFields struct {
	BillingDate *string                  `json:"billingDate,omitempty"` // DD-MM-YYYY
	Company     *string                  `json:"company,omitempty"`
	Creditor    *string                  `json:"creditor,omitempty"`
	Concept     *string                  `json:"concept,omitempty"`
	Description *string                  `json:"description,omitempty"`
	BaseAmount  any                      `json:"baseAmount,omitempty"`
	TaxPresent  *bool                    `json:"taxPresent,omitempty"`
	TaxAmount   any                      `json:"taxAmount,omitempty"`
	TotalAmount any                      `json:"totalAmount,omitempty"`
	Populated   []string                 `json:"extractedFields,omitempty"`
	Confidence  constants.ConfidenceTier `json:"confidence,omitempty"`
}

// IsEmpty reports whether the service produced no comparable field at all.
func (e ExtractedFields) IsEmpty() bool {
	return e.BillingDate == nil && e.Company == nil && e.Creditor == nil &&
		e.Concept == nil && e.Description == nil && e.BaseAmount == nil &&
		e.TaxPresent == nil && e.TaxAmount == nil && e.TotalAmount == nil
}

// HasMonetary reports whether any amount or tax field was produced.
func (e ExtractedFields) HasMonetary() bool {
	return e.BaseAmount != nil || e.TaxPresent != nil || e.TaxAmount != nil || e.TotalAmount != nil
}
