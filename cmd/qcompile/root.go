package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/parser"
)

// exitError carries a non-zero exit code for a failure already reported on
// stderr.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

type options struct {
	maxLen int
	terms  bool
	tree   bool
}

type termsOutput struct {
	Query        string   `json:"query"`
	IncludeTerms []string `json:"include_terms"`
	ExcludeTerms []string `json:"exclude_terms"`
	AllTerms     []string `json:"all_terms"`
}

type treeOutput struct {
	Query    string `json:"query"`
	Compiled string `json:"compiled"`
	Tree     string `json:"tree"`
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "qcompile [query...]",
		Short: "Compile search queries to PostgreSQL tsquery text",
		Long: `Compile a search query to tsquery text and print it as JSON together with
its include and exclude terms. The arguments are joined into one query; with
no arguments each non-blank line of stdin is compiled separately.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			queries := []string{strings.Join(args, " ")}
			if len(args) == 0 {
				var err error
				if queries, err = readLines(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
			}
			return run(opts, queries, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&opts.maxLen, "max", "m", parser.DefaultMaxQueryLength, "maximum query length in characters")
	cmd.Flags().BoolVarP(&opts.terms, "terms", "t", false, "print only the include, exclude and compiled-text terms")
	cmd.Flags().BoolVar(&opts.tree, "tree", false, "print the parsed expression tree")
	cmd.MarkFlagsMutuallyExclusive("terms", "tree")

	return cmd
}

// run compiles every query, reporting validation failures on stderr and
// carrying on with the next query.
func run(opts *options, queries []string, stdout, stderr io.Writer) error {
	c := parser.NewCompiler(parser.Config{MaxQueryLength: opts.maxLen})
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)

	failed := false
	for _, q := range queries {
		cq, err := c.Compile(q)
		if err != nil {
			var vErr *parser.ValidationError
			if !errors.As(err, &vErr) {
				return err
			}
			fmt.Fprintf(stderr, "%q: %s\n", q, vErr.Message)
			failed = true
			continue
		}
		if err := enc.Encode(render(opts, cq)); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	if failed {
		return &exitError{code: 2}
	}
	return nil
}

func render(opts *options, cq *parser.CompiledQuery) any {
	switch {
	case opts.terms:
		return termsOutput{
			Query:        cq.Query,
			IncludeTerms: cq.IncludeTerms,
			ExcludeTerms: cq.ExcludeTerms,
			AllTerms:     parser.ExtractAllTerms(cq.Text),
		}
	case opts.tree:
		return treeOutput{
			Query:    cq.Query,
			Compiled: cq.Text,
			Tree:     parser.Parse(parser.Lex(parser.Sanitize(cq.Query))).String(),
		}
	}
	return cq
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := sc.Text(); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
