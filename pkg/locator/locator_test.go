package locator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Locator
		wantErr error
	}{
		{
			name:  "globstar pattern",
			input: "s3://bucket/test/**/*.js",
			want:  &Locator{Scheme: "s3", Container: "bucket", Pattern: "test/**/*.js"},
		},
		{
			name:  "s3n scheme",
			input: "s3n://bucket/a/b",
			want:  &Locator{Scheme: "s3n", Container: "bucket", Pattern: "a/b"},
		},
		{
			name:  "scheme is lower-cased",
			input: "GS://Bucket/*.json",
			want:  &Locator{Scheme: "gs", Container: "Bucket", Pattern: "*.json"},
		},
		{
			name:  "query and fragment characters stay in pattern",
			input: "s3://b/file?.txt#1",
			want:  &Locator{Scheme: "s3", Container: "b", Pattern: "file?.txt#1"},
		},
		{
			name:  "braces and slashes kept verbatim",
			input: "s3://b/{a,b}//x/",
			want:  &Locator{Scheme: "s3", Container: "b", Pattern: "{a,b}//x/"},
		},
		{
			name:  "only first slash splits",
			input: "az://container/dir/sub/*.csv",
			want:  &Locator{Scheme: "az", Container: "container", Pattern: "dir/sub/*.csv"},
		},

		{name: "empty", input: "", wantErr: ErrInvalidLocator},
		{name: "no separator", input: "bucket/path", wantErr: ErrInvalidLocator},
		{name: "single slash", input: "s3:/bucket/path", wantErr: ErrInvalidLocator},
		{name: "empty scheme", input: "://bucket/path", wantErr: ErrInvalidLocator},
		{name: "non alphanumeric scheme", input: "s3+x://bucket/path", wantErr: ErrInvalidLocator},
		{name: "bucket only", input: "s3://bucket", wantErr: ErrMissingPattern},
		{name: "bucket with trailing slash", input: "s3://bucket/", wantErr: ErrMissingPattern},
		{name: "no container", input: "s3://", wantErr: ErrMissingContainer},
		{name: "empty container", input: "s3:///path", wantErr: ErrMissingContainer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				var parseErr *ParseError
				require.True(t, errors.As(err, &parseErr))
				assert.Equal(t, tt.input, parseErr.Input)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocator_String(t *testing.T) {
	l, err := Parse("S3://bucket/test/**/*.js")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/test/**/*.js", l.String())

	again, err := Parse(l.String())
	require.NoError(t, err)
	assert.Equal(t, l, again)
}

func TestParseError_Error(t *testing.T) {
	err := &ParseError{Input: "s3://bucket", Err: ErrMissingPattern}
	assert.Equal(t, `parse locator "s3://bucket": missing pattern`, err.Error())

	err = &ParseError{Input: "x", Reason: "expected scheme://container/pattern", Err: ErrInvalidLocator}
	assert.Equal(t, `parse locator "x": invalid locator: expected scheme://container/pattern`, err.Error())
}
