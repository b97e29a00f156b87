// Package merge turns an extraction result into a patch for the form.
package merge

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/entity"
	"github.com/joseph-ayodele/payorders/internal/normalize"
	"github.com/joseph-ayodele/payorders/internal/resolver"
)

// Result is the outcome of one merge.
type Result struct {
	Patch      entity.Patch             `json:"patch"`
	Populated  int                      `json:"populated"`
	Confidence constants.ConfidenceTier `json:"confidence"`
	Notices    []string                 `json:"notices,omitempty"`
}

// Merger resolves entities against one session's reference lists.
type Merger struct {
	companies *resolver.Resolver
	creditors *resolver.Resolver
	logger    *slog.Logger
}

// New builds a Merger over read-only company and creditor lists.
func New(companies, creditors []entity.ReferenceEntity, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{
		companies: resolver.New(companies, resolver.CompanyTokens),
		creditors: resolver.New(creditors, resolver.CreditorTokens),
		logger:    logger,
	}
}

// Merge is a convenience for a one-off merge with the default logger.
func Merge(ext entity.ExtractedFields, form entity.FormState, companies, creditors []entity.ReferenceEntity) Result {
	return New(companies, creditors, nil).Merge(ext, form)
}

// Merge computes the patch for ext over form. Neither argument is modified and
// the same inputs always give the same result.
func (m *Merger) Merge(ext entity.ExtractedFields, form entity.FormState) Result {
	var res Result
	res.Confidence = ext.Confidence
	p := &res.Patch

	if ext.BillingDate != nil {
		if d, ok := normalize.ToFormDate(*ext.BillingDate); ok {
			p.BillingDate = &d
		} else {
			res.Notices = append(res.Notices, fmt.Sprintf("The billing date %q could not be read; enter it manually.", *ext.BillingDate))
			m.logger.Info("merge.date.unparseable", "text", *ext.BillingDate)
		}
	}

	if ext.Company != nil {
		if canonical, ok := m.resolve(m.companies, entity.FieldCompany, *ext.Company, &res); ok {
			p.Company = &canonical
		}
	}
	if ext.Creditor != nil {
		if canonical, ok := m.resolve(m.creditors, entity.FieldCreditor, *ext.Creditor, &res); ok {
			p.Creditor = &canonical
		}
	}

	if ext.Concept != nil {
		concept := *ext.Concept
		p.Concept = &concept
	}
	if ext.Description != nil {
		description := *ext.Description
		p.Description = &description
	}

	if ext.HasMonetary() {
		m.mergeAmounts(ext, form, &res)
	}

	res.Populated = len(p.Fields())
	m.logger.Debug("merge.done",
		"populated", res.Populated,
		"confidence", res.Confidence,
		"notices", len(res.Notices))
	return res
}

func (m *Merger) resolve(r *resolver.Resolver, field, text string, res *Result) (string, bool) {
	match, ok := r.Resolve(text)
	if !ok {
		res.Notices = append(res.Notices, fmt.Sprintf("No %s in the list matches %q; select it manually.", field, text))
		m.logger.Info("merge.entity.miss", "field", field, "text", text)
		return "", false
	}
	m.logger.Debug("merge.entity.match",
		"field", field,
		"kind", match.Kind,
		"entity_id", match.Entity.ID)
	return match.Entity.Canonical, true
}

// mergeAmounts trusts only the amounts the document states. A positive tax
// amount decides the tax branch; no configured rate is consulted.
func (m *Merger) mergeAmounts(ext entity.ExtractedFields, form entity.FormState, res *Result) {
	p := &res.Patch

	base := form.BaseAmount
	if ext.BaseAmount != nil && normalize.IsPositive(ext.BaseAmount) {
		v := normalize.Units(ext.BaseAmount)
		p.BaseAmount = &v
		base = v
	}

	var (
		hasTax bool
		tax    int64
		total  int64
	)
	if normalize.IsPositive(ext.TaxAmount) {
		hasTax = true
		tax = normalize.Units(ext.TaxAmount)
		if normalize.IsPositive(ext.TotalAmount) {
			total = normalize.Units(ext.TotalAmount)
		} else {
			total = base + tax
		}
	} else {
		total = base
		if ext.TaxPresent != nil && *ext.TaxPresent {
			res.Notices = append(res.Notices, "The document mentions tax but states no amount; enter it manually.")
		}
	}

	p.HasTax = &hasTax
	p.TaxAmount = &tax
	p.TotalAmount = &total
}
