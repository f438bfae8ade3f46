package main

import (
	"fmt"
	"os"

	"github.com/kilianp07/saltplan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "saltplan:", err)
		os.Exit(1)
	}
}
