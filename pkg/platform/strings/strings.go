// Package strings holds small helpers for list-valued settings.
package strings

import "strings"

// CompactTrimmed trims each value and drops blanks and repeats, keeping the
// first occurrence's position. A nil or empty input is returned unchanged.
func CompactTrimmed(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
