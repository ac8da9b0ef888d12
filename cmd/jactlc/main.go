// Command jactlc is the compiler front end's CLI: tokenize, parse, and
// resolve scripts for debugging the pipeline (spec §4's three stages).
package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/go-jactl/cmd/jactlc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
