package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Options tune pattern compilation. The zero value matches minimatch
// defaults: dot segments hidden, braces expanded, no excludes.
type Options struct {
	// Dot lets wildcards match segments that start with '.'.
	// Default: false (hidden segments only match when spelled explicitly).
	Dot bool `mapstructure:"dot" json:"dot,omitempty"`

	// NoBrace treats '{' and '}' as literal characters.
	NoBrace bool `mapstructure:"no_brace" json:"no_brace,omitempty"`

	// Excludes are patterns that veto an otherwise matching key.
	Excludes []string `mapstructure:"excludes" json:"excludes,omitempty"`
}

// Errors returned by Compile.
var (
	// ErrEmptyPattern is returned for an empty pattern.
	ErrEmptyPattern = errors.New("pattern is empty")

	// ErrInvalidPattern is returned when a pattern cannot be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Pattern is a compiled glob: the brace-free alternatives used to plan
// listings, plus a predicate bound to the whole pattern.
//
// A Pattern is immutable and safe for concurrent use.
type Pattern struct {
	// Raw is the pattern as given to Compile.
	Raw string

	// Sequences holds one entry per alternative, in expansion order.
	Sequences []Sequence

	glob     string
	excludes []string
	dot      bool
}

// Compile parses pattern into its alternatives and predicate.
//
// Patterns are normalized first (see NormalizePattern). Alternatives that
// expand to the same text are kept once, in first-seen order.
func Compile(pattern string, opts Options) (*Pattern, error) {
	if pattern == "" {
		return nil, &PatternError{Pattern: pattern, Err: ErrEmptyPattern}
	}

	glob := NormalizePattern(pattern)
	if opts.NoBrace {
		glob = escapeBraces(glob)
	}
	if !doublestar.ValidatePattern(glob) {
		return nil, &PatternError{Pattern: pattern, Err: ErrInvalidPattern}
	}

	excludes := make([]string, 0, len(opts.Excludes))
	for _, raw := range opts.Excludes {
		exc := NormalizePattern(raw)
		if exc == "" || !doublestar.ValidatePattern(exc) {
			return nil, &PatternError{Pattern: raw, Err: ErrInvalidPattern}
		}
		excludes = append(excludes, exc)
	}

	p := &Pattern{Raw: pattern, glob: glob, excludes: excludes, dot: opts.Dot}
	seen := make(map[string]struct{})
	for _, expanded := range expandBraces(glob) {
		if _, dup := seen[expanded]; dup {
			continue
		}
		seen[expanded] = struct{}{}

		p.Sequences = append(p.Sequences, parseSequence(expanded))
	}
	return p, nil
}

// Match reports whether key satisfies the pattern.
//
// Keys are matched as-is: object keys are opaque and never normalized.
// Unless Options.Dot is set, a key segment starting with '.' only matches a
// pattern segment that starts with '.' itself, and "**" never crosses it.
func (p *Pattern) Match(key string) bool {
	if !p.matchInclude(key) {
		return false
	}
	for _, exc := range p.excludes {
		if matchGlob(exc, key) {
			return false
		}
	}
	return true
}

func (p *Pattern) matchInclude(key string) bool {
	if p.dot || !IsHidden(key) {
		return matchGlob(p.glob, key)
	}
	parts := strings.Split(key, "/")
	for _, seq := range p.Sequences {
		if matchHidden(seq, parts) {
			return true
		}
	}
	return false
}

// matchHidden matches key segments against one alternative with dot
// segments hidden from wildcards.
func matchHidden(seq Sequence, parts []string) bool {
	if len(seq) == 0 {
		return len(parts) == 0
	}
	seg, rest := seq[0], seq[1:]

	switch seg.Kind {
	case GlobStar:
		if matchHidden(rest, parts) {
			return true
		}
		for i, part := range parts {
			if strings.HasPrefix(part, ".") {
				return false
			}
			if matchHidden(rest, parts[i+1:]) {
				return true
			}
		}
		return false
	case Literal:
		return len(parts) > 0 && parts[0] == seg.Value && matchHidden(rest, parts[1:])
	default:
		if len(parts) == 0 {
			return false
		}
		if strings.HasPrefix(parts[0], ".") && !strings.HasPrefix(strings.TrimPrefix(seg.Value, `\`), ".") {
			return false
		}
		return matchGlob(seg.Value, parts[0]) && matchHidden(rest, parts[1:])
	}
}

// String returns the raw pattern.
func (p *Pattern) String() string {
	return p.Raw
}

// matchGlob matches a key against a validated doublestar pattern.
func matchGlob(pattern, key string) bool {
	matched, err := doublestar.Match(pattern, key)
	if err != nil {
		// Validated in Compile.
		return false
	}
	return matched
}
