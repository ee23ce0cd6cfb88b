// Package main provides the entry point for the oracle CLI.
package main

import (
	"os"

	"github.com/oracle-rag/oracle/cmd/oracle/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
