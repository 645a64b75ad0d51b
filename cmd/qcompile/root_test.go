package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/parser"
)

const stdinQueries = `cats NOT "big dogs"

(C++ OR golang) developer
a NOT b NOT c
`

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestCompileStdinGolden(t *testing.T) {
	out, errOut, err := execute(t, stdinQueries)
	require.NoError(t, err)
	assert.Empty(t, errOut)
	golden(t).Assert(t, "stdin", []byte(out))
}

func TestTreeGolden(t *testing.T) {
	out, _, err := execute(t, stdinQueries, "--tree")
	require.NoError(t, err)
	golden(t).Assert(t, "tree", []byte(out))
}

func TestCompileArgsJoined(t *testing.T) {
	out, _, err := execute(t, "", "cats", "NOT", `"big dogs"`)
	require.NoError(t, err)

	var got parser.CompiledQuery
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "cats & !(big <-> dogs)", got.Text)
	assert.Equal(t, []string{"cats"}, got.IncludeTerms)
	assert.Equal(t, []string{"big", "dogs"}, got.ExcludeTerms)
}

func TestTermsFlag(t *testing.T) {
	out, _, err := execute(t, "", "-t", "Cats OR dogs")
	require.NoError(t, err)

	var got termsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"cats", "dogs"}, got.IncludeTerms)
	assert.Equal(t, []string{"cats", "dogs"}, got.AllTerms)
}

func TestValidationExitCode(t *testing.T) {
	out, errOut, err := execute(t, "ok\nmuch too long\n", "--max", "5")

	var exit *exitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 2, exit.code)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, errOut, "Query exceeds maximum length of 5 characters")
}

func TestBlankArgumentIsInvalid(t *testing.T) {
	_, errOut, err := execute(t, "", "   ")
	var exit *exitError
	require.True(t, errors.As(err, &exit))
	assert.Contains(t, errOut, "Query cannot be empty")
}

func TestFlagsMutuallyExclusive(t *testing.T) {
	_, _, err := execute(t, "", "--terms", "--tree", "cats")
	require.Error(t, err)
	var exit *exitError
	assert.False(t, errors.As(err, &exit))
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("cats\n\n  \ndogs OR birds\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"cats", "dogs OR birds"}, lines)
}
