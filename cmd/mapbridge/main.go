// Command mapbridge is the developer CLI for the map bridge.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/mapbridge/cmd/mapbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
