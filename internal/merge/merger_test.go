package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/entity"
)

var (
	companies = []entity.ReferenceEntity{
		{ID: "c-1", Canonical: "NT-860034313-BANCO DAVIVIENDA S.A."},
		{ID: "c-2", Canonical: "NT-830025448-GRUPO BOLÍVAR S.A."},
	}
	creditors = []entity.ReferenceEntity{
		{ID: "p-1", Canonical: "NT-900555111-PAPELERIA CENTRAL S.A.S."},
	}
)

func ptr[T any](v T) *T {
	return &v
}

func fullExtraction() entity.ExtractedFields {
	return entity.ExtractedFields{
		BillingDate: ptr("31-12-2022"),
		Company:     ptr("830025448 GRUPO BOLIVAR"),
		Creditor:    ptr("PAPELERIA CENTRAL"),
		Concept:     ptr("Papelería"),
		Description: ptr("Resmas de papel carta"),
		BaseAmount:  "1.000.000",
		TaxPresent:  ptr(true),
		TaxAmount:   190000.0,
		TotalAmount: "1.190.000",
		Populated:   []string{"billingDate", "company", "creditor", "concept", "description", "baseAmount", "taxAmount", "totalAmount"},
		Confidence:  constants.ConfidenceHigh,
	}
}

func TestMergeFullExtraction(t *testing.T) {
	res := Merge(fullExtraction(), entity.FormState{}, companies, creditors)

	got := res.Patch.Apply(entity.FormState{})
	assert.Equal(t, entity.FormState{
		BillingDate: "2022-12-31",
		Company:     "NT-830025448-GRUPO BOLÍVAR S.A.",
		Creditor:    "NT-900555111-PAPELERIA CENTRAL S.A.S.",
		Concept:     "Papelería",
		Description: "Resmas de papel carta",
		BaseAmount:  1000000,
		HasTax:      true,
		TaxAmount:   190000,
		TotalAmount: 1190000,
	}, got)
	assert.Equal(t, 9, res.Populated)
	assert.Equal(t, constants.ConfidenceHigh, res.Confidence)
	assert.Empty(t, res.Notices)
}

func TestMergeTaxBranch(t *testing.T) {
	t.Run("should compute total from base and tax when total is missing", func(t *testing.T) {
		ext := entity.ExtractedFields{BaseAmount: 500000, TaxAmount: "95.000"}
		got := Merge(ext, entity.FormState{}, companies, creditors).Patch.Apply(entity.FormState{})

		assert.True(t, got.HasTax)
		assert.Equal(t, int64(95000), got.TaxAmount)
		assert.Equal(t, int64(595000), got.TotalAmount)
	})

	t.Run("should round the tax to whole units", func(t *testing.T) {
		ext := entity.ExtractedFields{BaseAmount: 100, TaxAmount: 19.5}
		got := Merge(ext, entity.FormState{}, companies, creditors).Patch.Apply(entity.FormState{})

		assert.Equal(t, int64(20), got.TaxAmount)
		assert.Equal(t, int64(120), got.TotalAmount)
	})

	t.Run("should clear tax and use base as total without a positive tax", func(t *testing.T) {
		form := entity.FormState{HasTax: true, TaxAmount: 50, TotalAmount: 999}
		ext := entity.ExtractedFields{BaseAmount: "300.000", TaxAmount: "0", TotalAmount: "357.000"}
		got := Merge(ext, form, companies, creditors).Patch.Apply(form)

		assert.False(t, got.HasTax)
		assert.Equal(t, int64(0), got.TaxAmount)
		assert.Equal(t, int64(300000), got.TotalAmount)
	})

	t.Run("should never apply a default tax rate", func(t *testing.T) {
		ext := entity.ExtractedFields{BaseAmount: "1.000.000", TaxPresent: ptr(true)}
		res := Merge(ext, entity.FormState{}, companies, creditors)
		got := res.Patch.Apply(entity.FormState{})

		assert.False(t, got.HasTax)
		assert.Equal(t, int64(0), got.TaxAmount)
		assert.Equal(t, int64(1000000), got.TotalAmount)
		assert.Len(t, res.Notices, 1)
	})

	t.Run("should keep the form base when the document base is not positive", func(t *testing.T) {
		form := entity.FormState{BaseAmount: 40000}
		ext := entity.ExtractedFields{BaseAmount: "0", TaxAmount: "7.600"}
		res := Merge(ext, form, companies, creditors)

		assert.Nil(t, res.Patch.BaseAmount)
		assert.Equal(t, int64(47600), res.Patch.Apply(form).TotalAmount)
	})
}

func TestMergeLeavesUnmatchedEntities(t *testing.T) {
	form := entity.FormState{Company: "NT-860034313-BANCO DAVIVIENDA S.A."}
	ext := entity.ExtractedFields{Company: ptr("Aseguradora Inexistente"), Creditor: ptr("Nadie Ltda")}

	res := Merge(ext, form, companies, creditors)

	assert.Nil(t, res.Patch.Company)
	assert.Nil(t, res.Patch.Creditor)
	assert.Equal(t, form, res.Patch.Apply(form))
	assert.Len(t, res.Notices, 2)
	assert.Equal(t, 0, res.Populated)
}

func TestMergeUnparseableDate(t *testing.T) {
	res := Merge(entity.ExtractedFields{BillingDate: ptr("fin de mes")}, entity.FormState{}, companies, creditors)

	assert.Nil(t, res.Patch.BillingDate)
	require.Len(t, res.Notices, 1)
	assert.Contains(t, res.Notices[0], "fin de mes")
}

func TestMergeWithoutMonetaryFieldsKeepsAmounts(t *testing.T) {
	form := entity.FormState{BaseAmount: 10, HasTax: true, TaxAmount: 2, TotalAmount: 12}
	res := Merge(entity.ExtractedFields{Concept: ptr("Servicios")}, form, companies, creditors)

	assert.Equal(t, []string{entity.FieldConcept}, res.Patch.Fields())
	assert.Equal(t, int64(12), res.Patch.Apply(form).TotalAmount)
}

func TestMergeIsIdempotent(t *testing.T) {
	ext := fullExtraction()
	form := entity.FormState{Description: "borrador"}
	m := New(companies, creditors, nil)

	first := m.Merge(ext, form)
	second := m.Merge(ext, form)

	assert.Equal(t, first, second)
	assert.Equal(t, entity.FormState{Description: "borrador"}, form)
	assert.Equal(t, fullExtraction(), ext)
}
