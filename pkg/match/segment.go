package match

import "strings"

// SegmentKind classifies one path component of a compiled pattern.
type SegmentKind int

const (
	// Literal segments match exactly one component with the same text.
	Literal SegmentKind = iota
	// Wildcard segments match within a single component (*, ?, [...]).
	Wildcard
	// GlobStar segments ("**") match any number of components, including zero.
	GlobStar
)

func (k SegmentKind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Wildcard:
		return "wildcard"
	case GlobStar:
		return "globstar"
	default:
		return "unknown"
	}
}

// Segment is one "/"-separated component of a pattern alternative.
//
// For Literal segments Value holds the unescaped text as it appears in
// object keys. For Wildcard and GlobStar segments Value holds the raw glob.
type Segment struct {
	Kind  SegmentKind
	Value string
}

// Sequence is the ordered segment list of one brace-free alternative.
type Sequence []Segment

// String reassembles the sequence into glob syntax.
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, seg := range s {
		if seg.Kind == Literal {
			parts[i] = escapeLiteral(seg.Value)
			continue
		}
		parts[i] = seg.Value
	}
	return strings.Join(parts, "/")
}

// parseSequence splits a brace-free, normalized pattern into segments.
func parseSequence(pattern string) Sequence {
	parts := strings.Split(pattern, "/")
	seq := make(Sequence, 0, len(parts))
	for _, part := range parts {
		switch {
		case part == "**":
			seq = append(seq, Segment{Kind: GlobStar, Value: part})
		case findFirstUnescapedMeta(part) >= 0:
			seq = append(seq, Segment{Kind: Wildcard, Value: part})
		default:
			seq = append(seq, Segment{Kind: Literal, Value: unescapeLiteral(part)})
		}
	}
	return seq
}

// escapeLiteral is the inverse of unescapeLiteral.
func escapeLiteral(s string) string {
	if !strings.ContainsAny(s, globEscapable) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(globEscapable, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
