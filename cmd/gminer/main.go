package main

import (
	"fmt"
	"os"

	"github.com/injective-mining/gminer/cmd/gminer/cmd"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cmd.ExitCodeFor(err)
	}
	return 0
}
