// Command wfstedit splices, boosts and normalizes weighted automata stored in
// the OpenFst binary format, and runs YAML edit recipes over archives.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
