// Command csvscan is a small command-line front end over the csvengine
// library: scan, info, validate, and rewrite subcommands built on the
// streaming recognizer through RowReader, and on Writer.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
