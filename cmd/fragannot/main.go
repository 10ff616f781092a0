// fragannot - Fragment ion annotation of peptide-spectrum matches
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/fragannot/cmd/fragannot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
