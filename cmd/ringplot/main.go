package main

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/ringplot/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ringplot: %v\n", err)
		os.Exit(1)
	}
}
