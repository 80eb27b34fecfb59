package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePattern(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"glob pattern", "data/**/*.parquet", "data/**/*.parquet"},

		{"backslashes converted", `path\to\file.txt`, "path/to/file.txt"},
		{"mixed slashes", `path\to/file.txt`, "path/to/file.txt"},
		{"trailing backslash", `path\to\dir\`, "path/to/dir/"},

		{"escaped asterisk", `data/file\*.txt`, `data/file\*.txt`},
		{"escaped question", `data/file\?.txt`, `data/file\?.txt`},
		{"escaped bracket", `data/file\[0-9\].txt`, `data/file\[0-9\].txt`},
		{"escaped brace", `data/file\{a,b\}.txt`, `data/file\{a,b\}.txt`},
		{"escaped backslash", `data/file\\.txt`, `data/file\\.txt`},
		{"escaped comma", `{a\,b}`, `{a\,b}`},
		{"windows path with escape", `data\2024\file\*.txt`, `data/2024/file\*.txt`},

		{"leading slash preserved", "/data/2024/**", "/data/2024/**"},
		{"double slash preserved", "data//2024/**", "data//2024/**"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePattern(tt.input))
		})
	}
}

func TestEscapeBraces(t *testing.T) {
	assert.Equal(t, "plain/*", escapeBraces("plain/*"))
	assert.Equal(t, `v/\{1,2\}/x`, escapeBraces("v/{1,2}/x"))
	assert.Equal(t, `v/\{1\}`, escapeBraces(`v/\{1}`))
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{"path/to/file.txt", false},
		{".hidden", true},
		{".hidden/file.txt", true},
		{"path/.hidden/file.txt", true},
		{"path/to/.gitignore", true},
		{"path/to/file.txt.", false},
		{"path//file", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsHidden(tt.key))
		})
	}
}

func TestExpandBraces(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected []string
	}{
		{"no braces", "a/b/*.js", []string{"a/b/*.js"}},
		{"single group", "{a,b}/x", []string{"a/x", "b/x"}},
		{"two groups", "{a,b}/{1,2}", []string{"a/1", "a/2", "b/1", "b/2"}},
		{"nested", "x/{a,b{1,2}}/y", []string{"x/a/y", "x/b1/y", "x/b2/y"}},
		{"empty option", "file{,.bak}", []string{"file", "file.bak"}},
		{"single option", "{only}/x", []string{"only/x"}},
		{"escaped brace", `a\{b,c\}`, []string{`a\{b,c\}`}},
		{"escaped comma", `{a\,b,c}`, []string{`a\,b`, "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandBraces(tt.pattern))
		})
	}
}
