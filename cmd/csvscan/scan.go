package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shapestone/csvengine/pkg/csv"
)

var scanHasHeaders bool

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Parse and print a CSV file's records",
	Long: `Parse and display the records in a CSV file, one per line, with fields
separated by a tab.

Example:
  csvscan scan data.csv
  csvscan scan --headers data.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening file: %w", err)
		}
		defer f.Close()

		rr := csv.NewRowReader(f, engineOptions()...).SetHasHeaders(scanHasHeaders)

		count := 0
		for rr.Scan() {
			if scanHasHeaders && count == 0 {
				fmt.Fprintln(os.Stdout, strings.Join(rr.Headers(), "\t"))
			}
			row := rr.Record()
			fields := make([]string, row.Len())
			for i := range fields {
				fields[i], _ = row.Get(i)
			}
			fmt.Fprintln(os.Stdout, strings.Join(fields, "\t"))
			count++
		}
		if err := rr.Err(); err != nil {
			return fmt.Errorf("parsing record %d: %w", count+1, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanHasHeaders, "headers", false, "treat the first record as a header row")
}
