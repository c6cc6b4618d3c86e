package util

import (
	"regexp"
	"strings"
)

var emailShapeRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lowercases an email address. All lookups and
// inserts go through it so the unique index is effectively case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLikelyEmail is a shape check only: something@something.tld without spaces.
func IsLikelyEmail(value string) bool {
	return emailShapeRegex.MatchString(value)
}

// DedupeTrimmed trims every value, drops empties and keeps the first
// occurrence of each, preserving order.
func DedupeTrimmed(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
