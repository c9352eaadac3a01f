package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shapestone/csvengine/internal/engine"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "csvscan",
	Short: "Inspect, validate, and rewrite CSV files",
	Long: `csvscan drives the csvengine streaming recognizer from the command line.

Example:
  csvscan scan data.csv
  csvscan info data.csv
  csvscan validate --strict data.csv
  csvscan rewrite --crlf data.csv out.csv`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log recognizer buffer activity to stderr")
}

// engineOptions returns the engine.Options shared by every subcommand,
// wiring a development logger to the recognizer when --verbose is set.
func engineOptions() []engine.Option {
	if !verbose {
		return nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "csvscan: failed to build logger: %v\n", err)
		return nil
	}
	return []engine.Option{engine.WithLogger(logger)}
}
