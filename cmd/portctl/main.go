package main

import (
	"fmt"
	"os"

	"portmonitor/internal/portctl"
)

func main() {
	if err := portctl.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
