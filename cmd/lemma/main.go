// Package main is the entry point for the lemma CLI.
package main

import (
	"fmt"
	"os"

	"github.com/lemmanotes/lemma/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
