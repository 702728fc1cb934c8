// main package for the narrator command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/book-expert/narration-service/cmd/narrator/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
