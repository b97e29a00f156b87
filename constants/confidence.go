package constants

import (
	"strings"
)

// ConfidenceTier is the extraction service's own certainty label.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

var allTiers = []ConfidenceTier{
	ConfidenceHigh,
	ConfidenceMedium,
	ConfidenceLow,
}

func TiersAsStringSlice() []string {
	result := make([]string, len(allTiers))
	for i, tier := range allTiers {
		result[i] = string(tier)
	}
	return result
}

// CanonicalizeTier maps a service label onto a known tier. Unknown or empty
// labels fall back to ConfidenceLow and report false.
func CanonicalizeTier(input string) (ConfidenceTier, bool) {
	if input == "" {
		return ConfidenceLow, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]ConfidenceTier{
		"alta":  ConfidenceHigh,
		"alto":  ConfidenceHigh,
		"media": ConfidenceMedium,
		"medio": ConfidenceMedium,
		"baja":  ConfidenceLow,
		"bajo":  ConfidenceLow,
		"med":   ConfidenceMedium,
	}
	if tier, ok := synonyms[normalized]; ok {
		return tier, true
	}

	for _, tier := range allTiers {
		if normalized == string(tier) {
			return tier, true
		}
	}

	return ConfidenceLow, false
}
