package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tollsim/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a snapshot log file",
	Long:  "replay feeds recorded snapshots from a JSONL log back into GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		writer, err := baseWriter(replayPrintOnly)
		if err != nil {
			return err
		}
		return sim.ReplayLogFile(replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to snapshot log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print snapshots to STDOUT instead of writing to DB")
	replayCmd.MarkFlagRequired("input")
}
