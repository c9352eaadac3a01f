package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shapestone/csvengine/pkg/csv"
)

var (
	validateStrict        bool
	validateMaxFieldBytes int
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate CSV structure",
	Long: `Validate a CSV file: every record must have the same field count as the
first. With --strict, empty fields are also reported as errors. With
--max-field-bytes, oversized fields are recovered from (skipped with a
warning) instead of aborting the scan.

Example:
  csvscan validate data.csv
  csvscan validate --strict --max-field-bytes=1024 data.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening file: %w", err)
		}
		defer f.Close()

		rr := csv.NewRowReader(f, engineOptions()...)
		if validateMaxFieldBytes > 0 {
			rr.SetErrorRecovery(csv.ErrorRecoveryOptions{
				OnBadLine:    csv.BadLineModeWarn,
				MaxFieldSize: validateMaxFieldBytes,
				WarningCallback: func(line int, msg string) {
					fmt.Fprintf(os.Stderr, "row %d: %s\n", line, msg)
				},
			})
		}

		var (
			rowCount    int
			columnCount int
			problems    []string
		)
		for rr.Scan() {
			rowCount++
			row := rr.Record()

			if rowCount == 1 {
				columnCount = row.Len()
			} else if row.Len() != columnCount {
				problems = append(problems, fmt.Sprintf("row %d: expected %d columns, got %d", rowCount, columnCount, row.Len()))
				if validateStrict {
					break
				}
			}

			if validateStrict {
				for i := 0; i < row.Len(); i++ {
					v, _ := row.Get(i)
					if v == "" {
						problems = append(problems, fmt.Sprintf("row %d, column %d: empty field", rowCount, i+1))
					}
				}
			}
		}
		if err := rr.Err(); err != nil {
			return fmt.Errorf("row %d: %w", rowCount+1, err)
		}

		fmt.Printf("File: %s\n", args[0])
		fmt.Printf("Rows processed: %d\n", rowCount)
		fmt.Printf("Columns per row: %d\n", columnCount)

		if len(problems) > 0 {
			fmt.Println("\nProblems:")
			for _, p := range problems {
				fmt.Printf("- %s\n", p)
			}
			return fmt.Errorf("validation failed with %d problems", len(problems))
		}
		fmt.Println("\nValidation successful.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVarP(&validateStrict, "strict", "s", false, "also reject empty fields, stop at first column-count mismatch")
	validateCmd.Flags().IntVar(&validateMaxFieldBytes, "max-field-bytes", 0, "recover from fields larger than this by skipping the row (0 disables)")
}
