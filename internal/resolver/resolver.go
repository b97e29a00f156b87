// Package resolver matches free-text entity names taken from a document
// against a closed, ordered reference list.
package resolver

import (
	"strings"
	"unicode"

	"github.com/joseph-ayodele/payorders/internal/entity"
	"github.com/joseph-ayodele/payorders/internal/normalize"
)

// MatchKind says how a reference was found.
type MatchKind string

const (
	MatchExact   MatchKind = "exact"
	MatchPartial MatchKind = "partial"
)

// MinFragmentLen is the fewest letters and digits a text needs to match as a
// fragment of a canonical string.
const MinFragmentLen = 3

// Match is a resolved reference.
type Match struct {
	Entity entity.ReferenceEntity
	Kind   MatchKind
}

// TokenFunc returns the sub-tokens that must all appear in the text for a
// partial match against ref.
type TokenFunc func(ref entity.ReferenceEntity) []string

// Resolver resolves names against one reference list.
type Resolver struct {
	refs   []entity.ReferenceEntity
	tokens TokenFunc
}

// New builds a Resolver over refs. The list is used as given; its order is the
// match precedence.
func New(refs []entity.ReferenceEntity, tokens TokenFunc) *Resolver {
	return &Resolver{refs: refs, tokens: tokens}
}

// Resolve returns the canonical reference for text, or false when nothing in
// the list matches. It never invents an entity.
func (r *Resolver) Resolve(text string) (Match, bool) {
	return Resolve(text, r.refs, r.tokens)
}

// Resolve tries a verbatim canonical match first, then the first reference in
// list order whose sub-tokens all appear in text or whose canonical string
// contains, or is contained in, text.
func Resolve(text string, refs []entity.ReferenceEntity, tokens TokenFunc) (Match, bool) {
	text = strings.TrimSpace(text)
	if text == "" || len(refs) == 0 {
		return Match{}, false
	}

	for _, ref := range refs {
		if ref.Canonical == text {
			return Match{Entity: ref, Kind: MatchExact}, true
		}
	}

	folded := normalize.Fold(text)
	if folded == "" {
		return Match{}, false
	}
	compact := compactDigits(folded)
	for _, ref := range refs {
		if partialMatch(folded, compact, ref, tokens) {
			return Match{Entity: ref, Kind: MatchPartial}, true
		}
	}
	return Match{}, false
}

func partialMatch(folded, compact string, ref entity.ReferenceEntity, tokens TokenFunc) bool {
	if tokens != nil {
		if ts := tokens(ref); len(ts) > 0 && allContained(folded, compact, ts) {
			return true
		}
	}

	canon := normalize.Fold(ref.Canonical)
	if canon == "" {
		return false
	}
	if strings.Contains(folded, canon) {
		return true
	}
	return fragmentLen(folded) >= MinFragmentLen && strings.Contains(canon, folded)
}

func allContained(folded, compact string, tokens []string) bool {
	matched := 0
	for _, tok := range tokens {
		ft := normalize.Fold(tok)
		if ft == "" {
			continue
		}
		if isDigits(ft) {
			if !strings.Contains(compact, ft) {
				return false
			}
		} else if !strings.Contains(folded, ft) {
			return false
		}
		matched++
	}
	return matched > 0
}

// compactDigits removes the spaces that folding left between digit groups, so
// "830.025.448" and "830025448" compare equal.
func compactDigits(folded string) string {
	rs := []rune(folded)
	var b strings.Builder
	b.Grow(len(folded))
	for i, r := range rs {
		if r == ' ' && i > 0 && i < len(rs)-1 && unicode.IsDigit(rs[i-1]) && unicode.IsDigit(rs[i+1]) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fragmentLen(folded string) int {
	return len([]rune(strings.ReplaceAll(folded, " ", "")))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
