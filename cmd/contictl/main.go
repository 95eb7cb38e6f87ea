// Package main is the entry point for the contictl ledger CLI.
package main

import (
	"os"

	"conti/cmd/contictl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
