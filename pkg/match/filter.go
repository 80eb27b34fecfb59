package match

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/3leaps/bucketglob/pkg/provider"
)

// FilterConfig narrows glob matches by listing metadata. Every field is
// optional; empty fields impose no constraint.
type FilterConfig struct {
	// MinSize and MaxSize are inclusive bounds, e.g. "1KB", "100MiB".
	MinSize string `mapstructure:"min_size" json:"min_size,omitempty" yaml:"min_size,omitempty"`
	MaxSize string `mapstructure:"max_size" json:"max_size,omitempty" yaml:"max_size,omitempty"`

	// ModifiedAfter is inclusive, ModifiedBefore exclusive.
	// Accepts "2024-01-15" or RFC 3339.
	ModifiedAfter  string `mapstructure:"modified_after" json:"modified_after,omitempty" yaml:"modified_after,omitempty"`
	ModifiedBefore string `mapstructure:"modified_before" json:"modified_before,omitempty" yaml:"modified_before,omitempty"`

	// KeyRegex is applied to keys after glob matching.
	KeyRegex string `mapstructure:"key_regex" json:"key_regex,omitempty" yaml:"key_regex,omitempty"`
}

// IsZero reports whether no constraint is configured.
func (c FilterConfig) IsZero() bool {
	return c == FilterConfig{}
}

// Filter errors.
var (
	ErrInvalidSize  = errors.New("invalid size value")
	ErrInvalidDate  = errors.New("invalid date value")
	ErrInvalidRegex = errors.New("invalid regex pattern")
)

// ObjectFilter applies FilterConfig constraints to listed objects.
// A nil *ObjectFilter accepts everything.
type ObjectFilter struct {
	minSize int64 // -1: unbounded
	maxSize int64 // -1: unbounded
	after   time.Time
	before  time.Time
	keyRe   *regexp.Regexp
}

// NewObjectFilter builds a filter from cfg. It returns nil, nil when cfg
// has no constraints.
func NewObjectFilter(cfg FilterConfig) (*ObjectFilter, error) {
	if cfg.IsZero() {
		return nil, nil
	}

	f := &ObjectFilter{minSize: -1, maxSize: -1}
	var err error

	if cfg.MinSize != "" {
		if f.minSize, err = ParseSize(cfg.MinSize); err != nil {
			return nil, fmt.Errorf("min size: %w", err)
		}
	}
	if cfg.MaxSize != "" {
		if f.maxSize, err = ParseSize(cfg.MaxSize); err != nil {
			return nil, fmt.Errorf("max size: %w", err)
		}
	}
	if f.minSize >= 0 && f.maxSize >= 0 && f.minSize > f.maxSize {
		return nil, fmt.Errorf("%w: min (%d) > max (%d)", ErrInvalidSize, f.minSize, f.maxSize)
	}

	if cfg.ModifiedAfter != "" {
		if f.after, err = ParseDate(cfg.ModifiedAfter); err != nil {
			return nil, fmt.Errorf("modified after: %w", err)
		}
	}
	if cfg.ModifiedBefore != "" {
		if f.before, err = ParseDate(cfg.ModifiedBefore); err != nil {
			return nil, fmt.Errorf("modified before: %w", err)
		}
	}
	if !f.after.IsZero() && !f.before.IsZero() && !f.after.Before(f.before) {
		return nil, fmt.Errorf("%w: after (%s) >= before (%s)", ErrInvalidDate, f.after.Format(time.RFC3339), f.before.Format(time.RFC3339))
	}

	if cfg.KeyRegex != "" {
		if f.keyRe, err = regexp.Compile(cfg.KeyRegex); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
		}
	}
	return f, nil
}

// Match reports whether obj satisfies every configured constraint.
func (f *ObjectFilter) Match(obj *provider.ObjectSummary) bool {
	if f == nil {
		return true
	}
	if f.minSize >= 0 && obj.Size < f.minSize {
		return false
	}
	if f.maxSize >= 0 && obj.Size > f.maxSize {
		return false
	}
	if !f.after.IsZero() && obj.LastModified.Before(f.after) {
		return false
	}
	if !f.before.IsZero() && !obj.LastModified.Before(f.before) {
		return false
	}
	if f.keyRe != nil && !f.keyRe.MatchString(obj.Key) {
		return false
	}
	return true
}

// String describes the active constraints.
func (f *ObjectFilter) String() string {
	if f == nil {
		return "no filters"
	}
	var parts []string
	if f.minSize >= 0 {
		parts = append(parts, ">= "+FormatSize(f.minSize))
	}
	if f.maxSize >= 0 {
		parts = append(parts, "<= "+FormatSize(f.maxSize))
	}
	if !f.after.IsZero() {
		parts = append(parts, "modified on/after "+f.after.Format("2006-01-02"))
	}
	if !f.before.IsZero() {
		parts = append(parts, "modified before "+f.before.Format("2006-01-02"))
	}
	if f.keyRe != nil {
		parts = append(parts, "key_regex "+f.keyRe.String())
	}
	return strings.Join(parts, ", ")
}

// Size unit multipliers.
const (
	Byte int64 = 1

	KB int64 = 1000
	MB int64 = 1000 * KB
	GB int64 = 1000 * MB
	TB int64 = 1000 * GB

	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

var sizeUnits = map[string]int64{
	"": Byte, "B": Byte,
	"K": KB, "KB": KB, "M": MB, "MB": MB, "G": GB, "GB": GB, "T": TB, "TB": TB,
	"KI": KiB, "KIB": KiB, "MI": MiB, "MIB": MiB, "GI": GiB, "GIB": GiB, "TI": TiB, "TIB": TiB,
}

// ParseSize parses "1024", "1.5GB" or "100MiB" (case insensitive).
// KB/MB/GB are base-10, KiB/MiB/GiB base-2.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	numEnd := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
	if numEnd < 0 {
		numEnd = len(s)
	}
	if numEnd == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	unit := strings.ToUpper(strings.TrimSpace(s[numEnd:]))
	mult, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidSize, unit)
	}

	num, err := strconv.ParseFloat(s[:numEnd], 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	bytes := num * float64(mult)
	if bytes >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: size overflows int64", ErrInvalidSize)
	}
	return int64(bytes), nil
}

// FormatSize renders bytes using base-2 units.
func FormatSize(bytes int64) string {
	switch {
	case bytes >= TiB:
		return fmt.Sprintf("%.1fTiB", float64(bytes)/float64(TiB))
	case bytes >= GiB:
		return fmt.Sprintf("%.1fGiB", float64(bytes)/float64(GiB))
	case bytes >= MiB:
		return fmt.Sprintf("%.1fMiB", float64(bytes)/float64(MiB))
	case bytes >= KiB:
		return fmt.Sprintf("%.1fKiB", float64(bytes)/float64(KiB))
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

// ParseDate parses a date ("2024-01-15", start of day UTC) or an RFC 3339
// timestamp. Results are normalized to UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
