package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalForms are trailing company-type markers, already folded.
var legalForms = [][]string{
	{"s", "en", "c", "s"},
	{"s", "de", "r", "l"},
	{"s", "en", "c"},
	{"s", "a", "s"},
	{"s", "a"},
	{"e", "u"},
	{"s", "l"},
	{"sas"},
	{"sa"},
	{"ltda"},
	{"ltd"},
	{"eu"},
	{"inc"},
	{"llc"},
	{"corp"},
}

// Fold lowercases s, strips diacritics and collapses every run of
// non-alphanumeric characters into one space.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSpace := false
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// StripLegalForm folds s and drops trailing legal-form markers such as
// "S.A.", "S.A.S." or "LTDA". A name made only of a marker is kept.
func StripLegalForm(s string) string {
	words := strings.Fields(Fold(s))
	for {
		trimmed := false
		for _, form := range legalForms {
			if len(words) > len(form) && hasSuffix(words, form) {
				words = words[:len(words)-len(form)]
				trimmed = true
				break
			}
		}
		if !trimmed {
			return strings.Join(words, " ")
		}
	}
}

func hasSuffix(words, suffix []string) bool {
	offset := len(words) - len(suffix)
	for i, w := range suffix {
		if words[offset+i] != w {
			return false
		}
	}
	return true
}

// ContainsFolded reports whether needle appears in haystack after folding both.
// An empty needle never matches.
func ContainsFolded(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Fold(haystack), n)
}
