package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected CalendarDate
	}{
		{name: "document shape", input: "31-12-2022", expected: CalendarDate{2022, time.December, 31}},
		{name: "document shape without padding", input: "1-2-2023", expected: CalendarDate{2023, time.February, 1}},
		{name: "form shape", input: "2022-12-31", expected: CalendarDate{2022, time.December, 31}},
		{name: "form shape without padding", input: "2023-2-1", expected: CalendarDate{2023, time.February, 1}},
		{name: "slashes", input: "05/03/2024", expected: CalendarDate{2024, time.March, 5}},
		{name: "timestamp late in the day keeps its own date", input: "2022-12-31T23:30:00-05:00", expected: CalendarDate{2022, time.December, 31}},
		{name: "timestamp early in the day keeps its own date", input: "2023-01-01T00:15:00+09:00", expected: CalendarDate{2023, time.January, 1}},
		{name: "surrounding spaces", input: "  31-12-2022 ", expected: CalendarDate{2022, time.December, 31}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDate(tc.input)
			require.True(t, ok)
			assert.Equal(t, tc.expected, got)
		})
	}

	t.Run("should report unparseable input as not comparable", func(t *testing.T) {
		for _, input := range []string{"", "mañana", "31-13-2022", "2022/31/12"} {
			_, ok := ParseDate(input)
			assert.False(t, ok, input)
		}
	})
}

func TestCalendarDateEquivalence(t *testing.T) {
	doc, ok := ParseDate("31-12-2022")
	require.True(t, ok)
	form, ok := ParseDate("2022-12-31")
	require.True(t, ok)

	assert.True(t, doc.Equal(form))
	assert.Equal(t, "2022-12-31", doc.String())
}

func TestToFormDate(t *testing.T) {
	got, ok := ToFormDate("05-01-2024")
	assert.True(t, ok)
	assert.Equal(t, "2024-01-05", got)

	_, ok = ToFormDate("no date")
	assert.False(t, ok)
}
