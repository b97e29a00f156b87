package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amount converts a textual or numeric candidate into a decimal amount.
//
// Text is read with the document separator rules: more than one period means
// the periods group thousands; a single period followed by more than two
// digits also groups thousands; a single period followed by one or two digits
// is the decimal point; commas always group thousands. Every character that is
// not a digit or the kept decimal point is then dropped. Unparseable input
// yields decimal.Zero. Typed numbers, including json.Number, are taken at
// their numeric value.
func Amount(v any) decimal.Decimal {
	switch t := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return t
	case float64:
		return decimal.NewFromFloat(t)
	case float32:
		return decimal.NewFromFloat32(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case int32:
		return decimal.NewFromInt32(t)
	case int64:
		return decimal.NewFromInt(t)
	case json.Number:
		// A JSON number never carries grouping; only malformed input falls
		// back to the text rules.
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return d
		}
		return parseAmountText(t.String())
	case string:
		return parseAmountText(t)
	case *string:
		if t == nil {
			return decimal.Zero
		}
		return parseAmountText(*t)
	default:
		return parseAmountText(fmt.Sprint(t))
	}
}

// Units returns Amount rounded to the nearest integer minor unit.
func Units(v any) int64 {
	return Amount(v).Round(0).IntPart()
}

// IsPositive reports whether v normalizes to an amount greater than zero.
func IsPositive(v any) bool {
	return Amount(v).IsPositive()
}

func parseAmountText(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	cleaned := stripGrouping(s)
	if cleaned == "" || cleaned == "." {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func stripGrouping(s string) string {
	keepDecimal := false
	if strings.Count(s, ".") == 1 {
		frac := digitsAfter(s, strings.IndexByte(s, '.'))
		keepDecimal = frac >= 1 && frac <= 2
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && keepDecimal:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func digitsAfter(s string, idx int) int {
	n := 0
	for i := idx + 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			break
		}
		n++
	}
	return n
}

var amountPrinter = message.NewPrinter(language.Spanish)

// FormatUnits renders an integer amount with locale thousands grouping for
// human-readable messages.
func FormatUnits(units int64) string {
	return amountPrinter.Sprintf("%d", units)
}

// FormatAmount renders a decimal amount for human-readable messages, keeping
// at most two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return FormatUnits(d.IntPart())
	}
	return d.StringFixed(2)
}
