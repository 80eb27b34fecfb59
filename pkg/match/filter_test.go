package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketglob/pkg/provider"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"0", 0, false},
		{"1024", 1024, false},
		{"1B", 1, false},
		{"1KB", 1000, false},
		{"1kb", 1000, false},
		{"1K", 1000, false},
		{"100MB", 100 * MB, false},
		{"1.5GB", 1500 * MB, false},
		{"1KiB", 1024, false},
		{"100MiB", 100 * MiB, false},
		{"2 GiB", 2 * GiB, false},
		{" 5TB ", 5 * TB, false},

		{"", 0, true},
		{"abc", 0, true},
		{"-5", 0, true},
		{"10XB", 0, true},
		{"1.2.3MB", 0, true},
		{"99999999999TiB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidSize)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512B", FormatSize(512))
	assert.Equal(t, "1.0KiB", FormatSize(KiB))
	assert.Equal(t, "1.5MiB", FormatSize(MiB+MiB/2))
	assert.Equal(t, "2.0GiB", FormatSize(2*GiB))
	assert.Equal(t, "1.0TiB", FormatSize(TiB))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"2024-01-15T10:30:00Z", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"2024-01-15T10:30:00+05:00", time.Date(2024, 1, 15, 5, 30, 0, 0, time.UTC), false},
		{"2024-01-15T10:30:00.5Z", time.Date(2024, 1, 15, 10, 30, 0, 500_000_000, time.UTC), false},
		{"", time.Time{}, true},
		{"15/01/2024", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNewObjectFilter_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  FilterConfig
		want error
	}{
		{"bad min", FilterConfig{MinSize: "big"}, ErrInvalidSize},
		{"bad max", FilterConfig{MaxSize: "x"}, ErrInvalidSize},
		{"min above max", FilterConfig{MinSize: "2KB", MaxSize: "1KB"}, ErrInvalidSize},
		{"bad after", FilterConfig{ModifiedAfter: "yesterday"}, ErrInvalidDate},
		{"inverted range", FilterConfig{ModifiedAfter: "2024-02-01", ModifiedBefore: "2024-01-01"}, ErrInvalidDate},
		{"bad regex", FilterConfig{KeyRegex: "("}, ErrInvalidRegex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewObjectFilter(tt.cfg)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, f)
		})
	}
}

func TestNewObjectFilter_Empty(t *testing.T) {
	f, err := NewObjectFilter(FilterConfig{})
	require.NoError(t, err)
	assert.Nil(t, f)

	// A nil filter accepts everything.
	assert.True(t, f.Match(&provider.ObjectSummary{Key: "any"}))
	assert.Equal(t, "no filters", f.String())
}

func TestObjectFilter_Match(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	f, err := NewObjectFilter(FilterConfig{
		MinSize:        "1KB",
		MaxSize:        "1MB",
		ModifiedAfter:  "2024-01-01",
		ModifiedBefore: "2024-02-01",
		KeyRegex:       `\.js$`,
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		obj      provider.ObjectSummary
		expected bool
	}{
		{"all constraints met", provider.ObjectSummary{Key: "a.js", Size: 2000, LastModified: jan}, true},
		{"too small", provider.ObjectSummary{Key: "a.js", Size: 10, LastModified: jan}, false},
		{"too large", provider.ObjectSummary{Key: "a.js", Size: 2 * MB, LastModified: jan}, false},
		{"min inclusive", provider.ObjectSummary{Key: "a.js", Size: KB, LastModified: jan}, true},
		{"too new", provider.ObjectSummary{Key: "a.js", Size: 2000, LastModified: feb}, false},
		{"before is exclusive", provider.ObjectSummary{Key: "a.js", Size: 2000, LastModified: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}, false},
		{"regex miss", provider.ObjectSummary{Key: "a.ts", Size: 2000, LastModified: jan}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.Match(&tt.obj))
		})
	}

	assert.Equal(t, `>= 1000B, <= 976.6KiB, modified on/after 2024-01-01, modified before 2024-02-01, key_regex \.js$`, f.String())
}
