// Package main provides the entry point for the filesearch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Leonardo4312/filesearch/cmd/filesearch/cmd"
	fserrors "github.com/Leonardo4312/filesearch/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprint(os.Stderr, fserrors.FormatForCLI(err))
		os.Exit(1)
	}
}
