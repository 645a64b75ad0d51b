package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractIncludeExcludeTerms(t *testing.T) {
	raw := `"Machine Learning" NOT python OR R; C++`
	assert.Equal(t, []string{"cplusplus", "learning", "machine", "r"}, ExtractIncludeTerms(raw))
	assert.Equal(t, []string{"python"}, ExtractExcludeTerms(raw))
}

func TestExtractAllTerms(t *testing.T) {
	tests := []struct {
		compiled string
		want     []string
	}{
		{"cats & dogs", []string{"cats", "dogs"}},
		{"(Hello <-> World) & !bye", []string{"bye", "hello", "world"}},
		{"(a <2> b) | !(c & a)", []string{"a", "b", "c"}},
		{"", []string{}},
		{"! & | ( )", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.compiled, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAllTerms(tt.compiled))
		})
	}
}
