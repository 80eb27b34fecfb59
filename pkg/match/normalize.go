// Package match compiles glob patterns for object keys into alternative
// segment sequences and a single doublestar-backed predicate.
package match

import (
	"strings"
)

// Glob metacharacters that can be escaped with backslash in patterns.
const globEscapable = `*?[]{}\,`

// NormalizePattern converts a user-provided glob pattern to canonical form.
//
// Unescaped backslashes become forward slashes so Windows users can write
// "logs\2024\app.gz". Escapes of glob metacharacters (\*, \?, \[, \{, \,)
// are preserved. Leading, trailing and doubled slashes are kept as-is because
// object keys may legitimately contain them.
//
//	"data\2024\app.log" → "data/2024/app.log"
//	"data/file\*.txt"   → "data/file\*.txt"
//	"data//2024/**"     → "data//2024/**"
func NormalizePattern(pattern string) string {
	if !strings.ContainsRune(pattern, '\\') {
		return pattern
	}

	var b strings.Builder
	b.Grow(len(pattern))
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(pattern) && strings.IndexByte(globEscapable, pattern[i+1]) >= 0 {
			b.WriteByte('\\')
			b.WriteByte(pattern[i+1])
			i++
			continue
		}
		b.WriteByte('/')
	}
	return b.String()
}

// escapeBraces makes every unescaped brace literal. Used when alternation
// is disabled.
func escapeBraces(pattern string) string {
	if !strings.ContainsAny(pattern, "{}") {
		return pattern
	}

	var b strings.Builder
	b.Grow(len(pattern) + 4)
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c == '\\' && i+1 < len(pattern) {
			b.WriteByte(c)
			b.WriteByte(pattern[i+1])
			i++
			continue
		}
		if c == '{' || c == '}' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// IsHidden reports whether any "/"-separated segment of key starts with a dot.
//
//	"path/to/file.txt"      → false
//	"path/.hidden/file.txt" → true
//	"path/to/file.txt."     → false
func IsHidden(key string) bool {
	for _, seg := range strings.Split(key, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
