// Package parser compiles free-text search queries into PostgreSQL tsquery
// syntax. A query is validated, sanitized, lexed into tokens, parsed into a
// small boolean AST and serialized back out. Include and exclude term sets
// for highlighting are classified from the same sanitized text in a separate
// pass.
package parser

import "log/slog"

// DefaultMaxQueryLength is used when Config.MaxQueryLength is not positive.
const DefaultMaxQueryLength = 1000

// Config holds the compiler's only setting.
type Config struct {
	MaxQueryLength int `yaml:"maxQueryLength"`
}

// CompiledQuery is the result of compiling one raw query.
type CompiledQuery struct {
	Query        string   `json:"query"`
	Text         string   `json:"compiled"`
	IncludeTerms []string `json:"include_terms"`
	ExcludeTerms []string `json:"exclude_terms"`
}

// Compiler is immutable after construction and safe for concurrent use.
type Compiler struct {
	maxLen int
	logger *slog.Logger
}

func NewCompiler(cfg Config) *Compiler {
	maxLen := cfg.MaxQueryLength
	if maxLen <= 0 {
		maxLen = DefaultMaxQueryLength
	}
	return &Compiler{
		maxLen: maxLen,
		logger: slog.Default().With("component", "query-compiler"),
	}
}

// MaxQueryLength returns the effective length limit in characters.
func (c *Compiler) MaxQueryLength() int {
	return c.maxLen
}

// Compile validates query and returns its tsquery text and term sets. The
// only error it returns is a *ValidationError.
func (c *Compiler) Compile(query string) (*CompiledQuery, error) {
	if err := c.Validate(query); err != nil {
		return nil, err
	}
	sanitized := Sanitize(query)
	terms := Classify(sanitized)
	text := Serialize(Parse(Lex(sanitized)))
	c.logger.Debug("query compiled",
		"query", query,
		"compiled", text,
		"include", len(terms.Include),
		"exclude", len(terms.Exclude),
	)
	return &CompiledQuery{
		Query:        query,
		Text:         text,
		IncludeTerms: terms.Include,
		ExcludeTerms: terms.Exclude,
	}, nil
}
