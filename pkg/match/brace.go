package match

// expandBraces expands every {a,b} alternation in pattern, left to right,
// returning the alternatives in the order a shell would print them.
//
// Escaped braces and commas are literal. Nested groups are expanded
// recursively. Splitting follows doublestar's own alternation rules so every
// alternative here is one the predicate also tries. The pattern must already
// have passed doublestar.ValidatePattern so groups are balanced.
func expandBraces(pattern string) []string {
	open, closing, options := findBraceGroup(pattern)
	if open < 0 {
		return []string{pattern}
	}

	head, tail := pattern[:open], pattern[closing+1:]
	var out []string
	for _, opt := range options {
		out = append(out, expandBraces(head+opt+tail)...)
	}
	return out
}

// findBraceGroup locates the first top-level brace group and splits its body
// on top-level commas. It returns open == -1 when there is no group.
func findBraceGroup(pattern string) (open, closing int, options []string) {
	open = -1
	depth := 0
	start := 0

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\':
			i++
		case c == '{':
			if depth == 0 {
				open = i
				start = i + 1
			}
			depth++
		case c == ',' && depth == 1:
			options = append(options, pattern[start:i])
			start = i + 1
		case c == '}' && depth > 0:
			depth--
			if depth == 0 {
				options = append(options, pattern[start:i])
				return open, i, options
			}
		}
	}
	return -1, -1, nil
}
