// Command filelab runs the storage lab against an emulated device.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/filelab/cmd/filelab/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
