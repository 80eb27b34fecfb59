package match

import "strings"

// LongestLiteralPrefix returns the listing prefix implied by seq: the leading
// run of Literal segments joined with "/".
//
// The second result is false when seq starts with a Wildcard or GlobStar, in
// which case the whole container has to be listed. The prefix carries no
// trailing slash, so "test/**/*.js" lists under "test" and the predicate
// discards siblings such as "testing/x.js".
//
// Examples:
//
//	"test/**/*.js"        → "test", true
//	"*.js"                → "", false
//	"data/2024/file.csv"  → "data/2024/file.csv", true
//	"data/file\*/*.log"   → "data/file*", true (escaped * is literal)
func LongestLiteralPrefix(seq Sequence) (string, bool) {
	n := 0
	for n < len(seq) && seq[n].Kind == Literal {
		n++
	}
	if n == 0 {
		return "", false
	}

	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = seq[i].Value
	}
	return strings.Join(parts, "/"), true
}

// findFirstUnescapedMeta returns the index of the first unescaped glob
// metacharacter (* ? [ {) in pattern, or -1 if none is found.
//
// A plain IndexAny would stop at "\*", which the user wrote to match a
// literal asterisk.
func findFirstUnescapedMeta(pattern string) int {
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c == '\\' && i+1 < len(pattern) {
			if strings.IndexByte(globEscapable, pattern[i+1]) >= 0 {
				i++
			}
			continue
		}
		if c == '*' || c == '?' || c == '[' || c == '{' {
			return i
		}
	}
	return -1
}

// unescapeLiteral strips glob escapes so the text can be compared against
// object keys, which carry no escape syntax.
//
// Example: "file\*.txt" → "file*.txt"
func unescapeLiteral(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && strings.IndexByte(globEscapable, s[i+1]) >= 0 {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// IsGlobPattern reports whether pattern contains an unescaped glob
// metacharacter.
//
//	"data/**/*.parquet"  → true
//	"data/file\*.txt"    → false
func IsGlobPattern(pattern string) bool {
	return findFirstUnescapedMeta(pattern) != -1
}
