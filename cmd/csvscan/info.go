package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shapestone/csvengine/pkg/csv"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display row/column counts and header names for a CSV file",
	Long: `Display basic information about a CSV file whose first record is a
header row: the number of data rows, the column count of the first data
row, and the header names.

Example:
  csvscan info data.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening file: %w", err)
		}
		defer f.Close()

		rr := csv.NewRowReader(f, engineOptions()...).SetHasHeaders(true)

		var (
			rowCount    int
			columnCount int
		)
		for rr.Scan() {
			if rowCount == 0 {
				columnCount = rr.Record().Len()
			}
			rowCount++
		}
		if err := rr.Err(); err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		fmt.Printf("File: %s\n", args[0])
		fmt.Printf("Data rows: %d\n", rowCount)
		fmt.Printf("Columns: %d\n", columnCount)

		if headers := rr.Headers(); len(headers) > 0 {
			fmt.Println("\nHeaders:")
			for i, h := range headers {
				fmt.Printf("%d. %s\n", i+1, h)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
