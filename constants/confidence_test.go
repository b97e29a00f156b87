package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeTier(t *testing.T) {
	testCases := []struct {
		input    string
		expected ConfidenceTier
		known    bool
	}{
		{input: "high", expected: ConfidenceHigh, known: true},
		{input: " HIGH ", expected: ConfidenceHigh, known: true},
		{input: "Alta", expected: ConfidenceHigh, known: true},
		{input: "media", expected: ConfidenceMedium, known: true},
		{input: "low", expected: ConfidenceLow, known: true},
		{input: "", expected: ConfidenceLow, known: false},
		{input: "certain", expected: ConfidenceLow, known: false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			tier, ok := CanonicalizeTier(tc.input)
			assert.Equal(t, tc.expected, tier)
			assert.Equal(t, tc.known, ok)
		})
	}
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, AllowedExt(".PDF"))
	assert.True(t, AllowedExt("pdf"))
	assert.False(t, AllowedExt(".png"))
	assert.False(t, AllowedExt(""))
}
