package resolver

import (
	"strings"
	"unicode"

	"github.com/joseph-ayodele/payorders/internal/entity"
	"github.com/joseph-ayodele/payorders/internal/normalize"
)

const (
	minIdentifierDigits = 5
	maxTypeCodeLen      = 3
)

// CompanyTokens yields the tax-id and name tokens of a receiving company.
// Explicit tokens on the reference win over the decomposition.
func CompanyTokens(ref entity.ReferenceEntity) []string {
	if len(ref.Tokens) > 0 {
		return ref.Tokens
	}
	return SegmentTokens(ref.Canonical, "-")
}

// CreditorTokens yields the identifier and name tokens of a creditor. A name
// with no identifier segment keeps its legal-form suffix.
func CreditorTokens(ref entity.ReferenceEntity) []string {
	if len(ref.Tokens) > 0 {
		return ref.Tokens
	}
	tokens := SegmentTokens(ref.Canonical, "-")
	if len(tokens) == 1 && !isDigits(tokens[0]) {
		return []string{normalize.Fold(ref.Canonical)}
	}
	return tokens
}

// SegmentTokens decomposes a sep-joined canonical string such as
// "NT-830025448-GRUPO BOLÍVAR S.A." into its identifier ("830025448") and its
// name without legal form ("grupo bolivar"). A leading type code ("NT") and
// short check-digit segments are dropped.
func SegmentTokens(canonical, sep string) []string {
	var segs []string
	for _, s := range strings.Split(canonical, sep) {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return nil
	}

	var tokens []string
	var nameParts []string
	idFound := false
	for i, s := range segs {
		digits := digitsOnly(s)
		switch {
		case !idFound && len(digits) >= minIdentifierDigits && len(digits) == countAlnum(s):
			tokens = append(tokens, digits)
			idFound = true
		case idFound && digits != "" && len(digits) == countAlnum(s) && len(digits) < minIdentifierDigits:
			// check digit
		case i == 0 && len(segs) > 1 && isTypeCode(s):
		default:
			nameParts = append(nameParts, s)
		}
	}

	if name := normalize.StripLegalForm(strings.Join(nameParts, " ")); name != "" {
		tokens = append(tokens, name)
	}
	return tokens
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func countAlnum(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func isTypeCode(s string) bool {
	if len(s) > maxTypeCodeLen {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
