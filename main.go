package main

import (
	"context"
	"fmt"
	"os"

	"github.com/poolsnap/poolsnap/cmd"
)

func main() {
	if err := cmd.RunCLI(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
