// Package consistency re-checks a finished form against the extraction it was
// filled from.
package consistency

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/payorders/internal/entity"
	"github.com/joseph-ayodele/payorders/internal/normalize"
)

// Tolerance is the largest amount difference, in minor units, treated as
// rounding noise.
const Tolerance = 1

// Labels are the user-facing names of the checked fields.
var Labels = map[string]string{
	entity.FieldBillingDate: "Billing date",
	entity.FieldBaseAmount:  "Base amount",
	entity.FieldTaxPresent:  "Tax",
	entity.FieldTaxAmount:   "Tax amount",
	entity.FieldTotalAmount: "Total amount",
	entity.FieldCompany:     "Receiving company",
	entity.FieldCreditor:    "Creditor",
	entity.FieldConcept:     "Concept",
}

var tolerance = decimal.NewFromInt(Tolerance)

// Check compares form with ext field by field and returns the mismatches in
// check order: date, base, tax, total, company, creditor, concept. Fields the
// extraction did not produce are skipped. The description is never compared.
func Check(ext entity.ExtractedFields, form entity.FormState) []entity.Discrepancy {
	var out []entity.Discrepancy
	add := func(field, formValue, extractedValue string) {
		out = append(out, entity.Discrepancy{
			Field:          field,
			Label:          Labels[field],
			FormValue:      formValue,
			ExtractedValue: extractedValue,
		})
	}

	if ext.BillingDate != nil {
		if fv, ev, ok := compareDates(form.BillingDate, *ext.BillingDate); !ok {
			add(entity.FieldBillingDate, fv, ev)
		}
	}

	if ext.BaseAmount != nil {
		if ev, ok := compareAmount(form.BaseAmount, ext.BaseAmount); !ok {
			add(entity.FieldBaseAmount, normalize.FormatUnits(form.BaseAmount), ev)
		}
	}

	if extHasTax, present := taxFlag(ext); present {
		switch {
		case extHasTax != form.HasTax:
			add(entity.FieldTaxPresent, yesNo(form.HasTax), yesNo(extHasTax))
		case extHasTax && ext.TaxAmount != nil:
			if ev, ok := compareAmount(form.TaxAmount, ext.TaxAmount); !ok {
				add(entity.FieldTaxAmount, normalize.FormatUnits(form.TaxAmount), ev)
			}
		}
	}

	if ext.TotalAmount != nil {
		if ev, ok := compareAmount(form.TotalAmount, ext.TotalAmount); !ok {
			add(entity.FieldTotalAmount, normalize.FormatUnits(form.TotalAmount), ev)
		}
	}

	if ext.Company != nil && !SameEntity(form.Company, *ext.Company) {
		add(entity.FieldCompany, form.Company, *ext.Company)
	}
	if ext.Creditor != nil && !SameEntity(form.Creditor, *ext.Creditor) {
		add(entity.FieldCreditor, form.Creditor, *ext.Creditor)
	}

	if ext.Concept != nil && !strings.EqualFold(strings.TrimSpace(form.Concept), strings.TrimSpace(*ext.Concept)) {
		add(entity.FieldConcept, form.Concept, *ext.Concept)
	}

	return out
}

// compareDates compares by (year, month, day). When either side cannot be
// parsed the raw texts must match exactly.
func compareDates(formValue, extracted string) (string, string, bool) {
	fd, fok := normalize.ParseDate(formValue)
	ed, eok := normalize.ParseDate(extracted)
	if fok && eok {
		return fd.String(), ed.String(), fd.Equal(ed)
	}
	return formValue, extracted, strings.TrimSpace(formValue) == strings.TrimSpace(extracted)
}

func compareAmount(formUnits int64, extracted any) (string, bool) {
	ev := normalize.Amount(extracted)
	diff := ev.Sub(decimal.NewFromInt(formUnits)).Abs()
	return normalize.FormatAmount(ev), diff.LessThanOrEqual(tolerance)
}

// taxFlag is the extraction's own tax flag, or whether it states a positive
// tax amount when the flag is missing.
func taxFlag(ext entity.ExtractedFields) (hasTax, present bool) {
	if ext.TaxPresent != nil {
		return *ext.TaxPresent, true
	}
	if ext.TaxAmount != nil {
		return normalize.IsPositive(ext.TaxAmount), true
	}
	return false, false
}

// SameEntity reports whether the trailing segment of either name appears in
// the other after case, diacritic and legal-form folding. An empty side only
// agrees with another empty side.
func SameEntity(formValue, extracted string) bool {
	formValue, extracted = strings.TrimSpace(formValue), strings.TrimSpace(extracted)
	if formValue == "" || extracted == "" {
		return formValue == extracted
	}
	return normalize.ContainsFolded(extracted, lastSegment(formValue)) ||
		normalize.ContainsFolded(formValue, lastSegment(extracted))
}

func lastSegment(s string) string {
	seg := s
	if i := strings.LastIndex(s, "-"); i >= 0 && strings.TrimSpace(s[i+1:]) != "" {
		seg = s[i+1:]
	}
	return normalize.StripLegalForm(seg)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
