package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SafeASCIIFilename reduces a title to printable ASCII suitable for a quoted
// Content-Disposition filename. Accented letters decompose to their base
// letter; anything else outside 0x20-0x7E, quotes and backslashes become
// spaces, and runs of whitespace collapse. An empty result yields fallback.
func SafeASCIIFilename(title, fallback string) string {
	decomposed := norm.NFKD.String(title)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte(' ')
		case r >= 0x20 && r <= 0x7e:
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	collapsed := strings.Join(strings.Fields(b.String()), " ")
	if collapsed == "" {
		return fallback
	}
	return collapsed
}
