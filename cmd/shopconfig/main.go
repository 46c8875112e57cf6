// Command shopconfig runs the ARK shop config generator's local command API
// and offers a few license helpers for support.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newCLI(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
