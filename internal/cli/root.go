// Package cli implements the timetable command line tool.
package cli

import (
	"github.com/spf13/cobra"
)

var verbose bool

// NewRootCommand assembles the command tree. A fresh tree per call keeps flag state out of tests.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "timetable",
		Short:         "Generate weekly class timetables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log generation details")
	root.AddCommand(newGenerateCommand(), newTokenCommand())
	return root
}

// Execute runs the CLI.
func Execute() error { return NewRootCommand().Execute() }
