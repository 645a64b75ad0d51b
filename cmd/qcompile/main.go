// qcompile compiles search queries to PostgreSQL tsquery text and prints the
// result as JSON, one object per query:
//
//	$ qcompile 'cats NOT "big dogs"'
//	{"query":"cats NOT \"big dogs\"","compiled":"cats & !(big <-> dogs)","include_terms":["cats"],"exclude_terms":["big","dogs"]}
//
// With no arguments, queries are read from stdin one per line. The exit code
// is 2 when any query fails validation.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "ERR: %v\n", err)
		os.Exit(1)
	}
}
