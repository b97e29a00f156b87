package entity

import "fmt"

// Discrepancy is one mismatch between a form field and the extraction.
type Discrepancy struct {
	Field          string `json:"field"`
	Label          string `json:"label"`
	FormValue      string `json:"form_value"`
	ExtractedValue string `json:"extracted_value"`
}

// String renders the discrepancy as one sentence for the confirmation dialog.
func (d Discrepancy) String() string {
	form := d.FormValue
	if form == "" {
		form = "(empty)"
	}
	extracted := d.ExtractedValue
	if extracted == "" {
		extracted = "(empty)"
	}
	return fmt.Sprintf("%s: the form has %q but the document states %q.", d.Label, form, extracted)
}

// Messages renders every discrepancy with String.
func Messages(ds []Discrepancy) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}
