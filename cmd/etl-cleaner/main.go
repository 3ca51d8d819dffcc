// Command etl-cleaner extracts tabular data, applies per-column cleaning
// rules, and loads the result into a database or file destination.
package main

import (
	"errors"
	"fmt"
	"os"

	"etl-cleaner/internal/app"
)

func main() {
	runner := app.NewAppRunner()
	if err := runner.Run(os.Args[1:]); err != nil {
		if errors.Is(err, app.ErrUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			runner.Usage(os.Stderr)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
