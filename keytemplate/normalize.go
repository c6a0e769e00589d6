// Package keytemplate groups structurally identical memcached keys — keys
// that differ only in an embedded numeric ID — under a shared template, so
// hot-key detection and the tap UI can group "user:123:profile" and
// "user:456:profile" as the same template instead of treating every ID as
// its own key.
package keytemplate

import "strings"

// isSegmentBoundary reports whether c is one of the characters that commonly
// delimit fields within a memcached key (namespace:id:field, namespace.id, etc).
func isSegmentBoundary(c byte) bool {
	return c == ':' || c == '.' || c == '-' || c == '_'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Normalize replaces every standalone run of digits in key — a run bounded
// on both sides by a segment boundary character or the start/end of the
// string — with a single '#' placeholder, so keys that differ only in an
// embedded numeric ID collapse to the same template.
func Normalize(key string) string {
	if key == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(key))

	i := 0
	for i < len(key) {
		ch := key[i]

		if isDigit(ch) && (i == 0 || isSegmentBoundary(key[i-1])) {
			if next, ok := normalizeRun(&b, key, i); ok {
				i = next
				continue
			}
		}

		b.WriteByte(ch)
		i++
	}

	return b.String()
}

// normalizeRun replaces a standalone digit run starting at pos with '#'.
// Returns (newPos, true) if the run is standalone (bounded by a segment
// boundary or the end of the key); otherwise (0, false), meaning the digits
// are part of a larger alphanumeric token and should be copied as-is.
func normalizeRun(b *strings.Builder, key string, pos int) (int, bool) {
	j := pos + 1
	for j < len(key) && isDigit(key[j]) {
		j++
	}
	if j >= len(key) || isSegmentBoundary(key[j]) {
		b.WriteByte('#')
		return j, true
	}
	return 0, false
}
