// Package cmd provides the command-line interface for cxlsim.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cxlsim",
		Short: "Timing simulator for a CXL memory expander.",
		Long: `cxlsim models a CXL memory expander controller with an ` +
			`optional near-memory processor, driven by a host or ` +
			`near-memory workload.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It runs the exit handlers before returning to the OS.
func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		logrus.Error(err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
