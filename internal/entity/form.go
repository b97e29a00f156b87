package entity

// FormState is the user-visible draft of a payment order. Amounts are integer
// minor currency units.
type FormState struct {
	BillingDate string `json:"billingDate"` // YYYY-MM-DD
	Company     string `json:"company"`
	Creditor    string `json:"creditor"`
	Concept     string `json:"concept"`
	Description string `json:"description"`
	BaseAmount  int64  `json:"baseAmount"`
	HasTax      bool   `json:"hasTax"`
	TaxAmount   int64  `json:"taxAmount"`
	TotalAmount int64  `json:"totalAmount"`
}

// Patch is the subset of FormState fields a merge overwrites.
type Patch struct {
	BillingDate *string `json:"billingDate,omitempty"`
	Company     *string `json:"company,omitempty"`
	Creditor    *string `json:"creditor,omitempty"`
	Concept     *string `json:"concept,omitempty"`
	Description *string `json:"description,omitempty"`
	BaseAmount  *int64  `json:"baseAmount,omitempty"`
	HasTax      *bool   `json:"hasTax,omitempty"`
	TaxAmount   *int64  `json:"taxAmount,omitempty"`
	TotalAmount *int64  `json:"totalAmount,omitempty"`
}

// Apply returns a copy of s with every set patch field overwritten.
func (p Patch) Apply(s FormState) FormState {
	if p.BillingDate != nil {
		s.BillingDate = *p.BillingDate
	}
	if p.Company != nil {
		s.Company = *p.Company
	}
	if p.Creditor != nil {
		s.Creditor = *p.Creditor
	}
	if p.Concept != nil {
		s.Concept = *p.Concept
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.BaseAmount != nil {
		s.BaseAmount = *p.BaseAmount
	}
	if p.HasTax != nil {
		s.HasTax = *p.HasTax
	}
	if p.TaxAmount != nil {
		s.TaxAmount = *p.TaxAmount
	}
	if p.TotalAmount != nil {
		s.TotalAmount = *p.TotalAmount
	}
	return s
}

// Fields lists the keys of the set patch fields in form order.
func (p Patch) Fields() []string {
	var out []string
	add := func(set bool, key string) {
		if set {
			out = append(out, key)
		}
	}
	add(p.BillingDate != nil, FieldBillingDate)
	add(p.Company != nil, FieldCompany)
	add(p.Creditor != nil, FieldCreditor)
	add(p.Concept != nil, FieldConcept)
	add(p.Description != nil, FieldDescription)
	add(p.BaseAmount != nil, FieldBaseAmount)
	add(p.HasTax != nil, FieldTaxPresent)
	add(p.TaxAmount != nil, FieldTaxAmount)
	add(p.TotalAmount != nil, FieldTotalAmount)
	return out
}
