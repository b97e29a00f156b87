package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/entity"
)

// synonyms maps keys the service has been seen to emit onto schema keys.
var synonyms = map[string]string{
	"fecha":             entity.FieldBillingDate,
	"fechaFactura":      entity.FieldBillingDate,
	"billing_date":      entity.FieldBillingDate,
	"date":              entity.FieldBillingDate,
	"empresa":           entity.FieldCompany,
	"receiving_company": entity.FieldCompany,
	"acreedor":          entity.FieldCreditor,
	"proveedor":         entity.FieldCreditor,
	"supplier":          entity.FieldCreditor,
	"concepto":          entity.FieldConcept,
	"descripcion":       entity.FieldDescription,
	"base":              entity.FieldBaseAmount,
	"subtotal":          entity.FieldBaseAmount,
	"valorBase":         entity.FieldBaseAmount,
	"iva":               entity.FieldTaxAmount,
	"tax":               entity.FieldTaxAmount,
	"valorIva":          entity.FieldTaxAmount,
	"hasIva":            entity.FieldTaxPresent,
	"tieneIva":          entity.FieldTaxPresent,
	"has_tax":           entity.FieldTaxPresent,
	"total":             entity.FieldTotalAmount,
	"valorTotal":        entity.FieldTotalAmount,
	"extracted_fields":  "extractedFields",
	"campos":            "extractedFields",
	"confianza":         "confidence",
}

var (
	textFields  = []string{entity.FieldBillingDate, entity.FieldCompany, entity.FieldCreditor, entity.FieldConcept, entity.FieldDescription}
	moneyFields = []string{entity.FieldBaseAmount, entity.FieldTaxAmount, entity.FieldTotalAmount}
)

// NormalizeAndSanitizeJSON makes a loose service response fit the schema:
//   - unwraps a "data" or "fields" envelope
//   - renames known synonyms (iva -> taxAmount, hasIva -> taxPresent, ...)
//   - drops null and empty optionals
//   - keeps amounts as JSON numbers or trimmed numeral strings
//   - canonicalizes the confidence tier
//   - removes unknown keys
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m, err := decodeObject(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	m = unwrapEnvelope(m)

	dropped := make([]string, 0, 8)
	drop := func(k, why string) {
		delete(m, k)
		dropped = append(dropped, k+"("+why+")")
	}

	for _, from := range slices.Sorted(maps.Keys(synonyms)) {
		to := synonyms[from]
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	for _, k := range textFields {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				drop(k, "empty")
			} else {
				m[k] = s
			}
		case json.Number:
			m[k] = t.String()
		case nil:
			drop(k, "null")
		default:
			drop(k, "type")
		}
	}

	for _, k := range moneyFields {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case json.Number:
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") || !strings.ContainsAny(s, "0123456789") {
				drop(k, "empty")
			} else {
				m[k] = s
			}
		case nil:
			drop(k, "null")
		default:
			drop(k, "type")
		}
	}

	if v, ok := m[entity.FieldTaxPresent]; ok {
		if b, ok := coerceBool(v); ok {
			m[entity.FieldTaxPresent] = b
		} else {
			drop(entity.FieldTaxPresent, "type")
		}
	}

	if v, ok := m["extractedFields"]; ok {
		list, isList := v.([]any)
		if !isList {
			drop("extractedFields", "type")
		} else {
			keys := make([]any, 0, len(list))
			for _, item := range list {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					keys = append(keys, strings.TrimSpace(s))
				}
			}
			m["extractedFields"] = keys
		}
	}

	if v, ok := m["confidence"]; ok {
		s, isString := v.(string)
		if !isString {
			drop("confidence", "type")
		} else {
			tier, _ := constants.CanonicalizeTier(s)
			m["confidence"] = string(tier)
		}
	}

	allowed := BuildFieldsJSONSchema()["properties"].(map[string]any)
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			drop(k, "unknown")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("extraction.sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func unwrapEnvelope(m map[string]any) map[string]any {
	for _, key := range []string{"data", "fields"} {
		if inner, ok := m[key].(map[string]any); ok && len(m) <= 2 {
			return inner
		}
	}
	return m
}

func coerceBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f != 0, err == nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "si", "sí", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}
