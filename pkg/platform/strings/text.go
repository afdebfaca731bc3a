// Package strings normalizes free text used as lookup keys and scoring
// keywords.
package strings

import (
	"strings"
	"unicode"
)

// CollapseLower lowercases s and collapses runs of whitespace to one space.
// "  Phillip   COREY " becomes "phillip corey".
func CollapseLower(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Keywords splits s on anything that is not a letter, digit or hyphen and
// returns the lowercased words of at least minLen runes, first occurrence
// first.
func Keywords(s string, minLen int) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.Trim(f, "-"))
		if len([]rune(f)) < minLen {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
