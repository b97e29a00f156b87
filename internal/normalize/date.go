package normalize

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DocumentLayout is the day-month-year shape billing documents use.
	DocumentLayout = "2-1-2006"
	// FormLayout is the year-month-day shape the form stores.
	FormLayout = "2006-01-02"
)

// fallbackLayouts are tried after the two known shapes.
var fallbackLayouts = []string{
	"2006-1-2",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2/1/2006",
	"2006/1/2",
	"2.1.2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	"January 2, 2006",
	"2 January 2006",
	"Jan 2, 2006",
}

// CalendarDate is a date compared by its (year, month, day) triple only.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// Equal compares the triples.
func (d CalendarDate) Equal(o CalendarDate) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

// IsZero reports whether d is the zero date.
func (d CalendarDate) IsZero() bool {
	return d == CalendarDate{}
}

// String renders the date in form shape.
func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseDate reads s in document shape, form shape, or one of the fallback
// layouts. The triple is taken from the wall clock of the parsed value, so a
// timestamp carrying an offset is never shifted into another day.
func ParseDate(s string) (CalendarDate, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CalendarDate{}, false
	}

	if t, err := time.Parse(DocumentLayout, s); err == nil {
		return fromTime(t), true
	}
	if t, err := time.Parse(FormLayout, s); err == nil {
		return fromTime(t), true
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return fromTime(t), true
		}
	}
	return CalendarDate{}, false
}

// ToFormDate converts any parseable date text into form shape.
func ToFormDate(s string) (string, bool) {
	d, ok := ParseDate(s)
	if !ok {
		return "", false
	}
	return d.String(), true
}

func fromTime(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}
