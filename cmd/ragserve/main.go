package main

import (
	"fmt"
	"os"

	"github.com/sparselabs/ragserve/internal/cli"
)

// set by ldflags at build time
var version = "dev"

func main() {
	cmd := cli.NewRootCommand(version)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
