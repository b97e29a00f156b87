package entity

// ReferenceEntity is one canonical entry of a closed list (company, creditor
// or concept). Tokens optionally carries decomposed sub-tokens used for
// partial matching; when empty they are derived from Canonical.
type ReferenceEntity struct {
	ID        string   `json:"id" yaml:"id"`
	Canonical string   `json:"canonical" yaml:"canonical"`
	Tokens    []string `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

// ReferenceLists is the read-only snapshot a form session works against.
type ReferenceLists struct {
	Companies []ReferenceEntity `json:"companies" yaml:"companies"`
	Creditors []ReferenceEntity `json:"creditors" yaml:"creditors"`
	Concepts  []ReferenceEntity `json:"concepts" yaml:"concepts"`
}

// Canonicals returns the canonical strings in list order.
func Canonicals(refs []ReferenceEntity) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Canonical
	}
	return out
}
