package search

import (
	"strings"
	"unicode"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

// Terms splits text into lowercase keywords. Single characters are dropped
// and each term appears once, in first-seen order.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// ItemTerms returns the keywords an item is indexed under.
func ItemTerms(it marketplace.Item) []string {
	parts := []string{it.Title, it.Description, it.Category}
	parts = append(parts, it.Tags...)
	return Terms(strings.Join(parts, " "))
}

// Match reports whether it carries every term in terms.
func Match(it marketplace.Item, terms []string) bool {
	have := make(map[string]bool)
	for _, t := range ItemTerms(it) {
		have[t] = true
	}
	for _, t := range terms {
		if !have[t] {
			return false
		}
	}
	return true
}
