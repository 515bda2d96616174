package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tollsim",
	Short: "Dynamic toll pricing simulation toolkit",
	Long:  "tollsim simulates vehicle routing across competing corridors and drives a congestion-responsive toll pricing controller.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
}
