// Package escape renders arbitrary values as single shell words.
package escape

import "strings"

// safe reports whether b can appear unquoted in a shell word.
func safe(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '-', '_', ',', '.', '=', '@', '/', '+', ':', '%':
		return true
	}
	return false
}

// String prefixes every byte outside [-a-zA-Z0-9_,.=@/+:%] with a backslash.
// It works on bytes, not runes, so invalid UTF-8 and NUL are handled too.
func String(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw) * 2)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if !safe(c) {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Join escapes each word and joins them with single spaces.
func Join(words ...string) string {
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = String(w)
	}
	return strings.Join(escaped, " ")
}
