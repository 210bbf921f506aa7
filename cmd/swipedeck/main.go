// Command swipedeck is a terminal card stream: drag the front card past the
// threshold (or press l/n/space) to swipe it away, and the deck refills from a
// Picsum-style photo list in the background.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/swipedeck/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, envErr := config.FromEnv(os.LookupEnv)

	root := newRootCmd(&cfg)
	root.AddCommand(newFetchCmd(&cfg), newVersionCmd())
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if envErr != nil {
			return envErr
		}
		return cfg.Validate()
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swipedeck",
		Short: "Swipe through a stream of photo cards in the terminal",
		Long: `swipedeck shows one card at a time. Drag it with the mouse past the
threshold, or press l, n or space, to swipe it away. The deck prefetches a new
batch whenever it runs low, and falls back to generated cards when the remote
endpoint is unavailable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), *cfg)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "photo list endpoint")
	f.IntVar(&cfg.InitialCount, "initial", cfg.InitialCount, "cards fetched at startup")
	f.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "cards fetched per refill")
	f.IntVar(&cfg.LowWaterMark, "low-water", cfg.LowWaterMark, "refill when fewer cards remain")
	f.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "per-request timeout before falling back")
	f.DurationVar(&cfg.RemoveDelay, "remove-delay", cfg.RemoveDelay, "delay before a swiped card is dropped")
	f.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "drag distance in pixels that commits a swipe")
	f.Float64Var(&cfg.MaxRotation, "max-rotation", cfg.MaxRotation, "maximum tilt in degrees while dragging")
	f.DurationVar(&cfg.ExitDuration, "exit-duration", cfg.ExitDuration, "exit animation length")
	f.DurationVar(&cfg.SettleDuration, "settle-duration", cfg.SettleDuration, "settle-back animation length")
	f.StringVar(&cfg.Axis, "axis", cfg.Axis, "drag axis: vertical, horizontal or free")
	f.StringVar(&cfg.Direction, "direction", cfg.Direction, "allowed drag direction: any, positive or negative")
	f.Float64Var(&cfg.CellWidth, "cell-width", cfg.CellWidth, "terminal cell width in pixels")
	f.Float64Var(&cfg.CellHeight, "cell-height", cfg.CellHeight, "terminal cell height in pixels")
	f.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for log files")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	f.BoolVar(&cfg.EventLog, "event-log", cfg.EventLog, "also write a JSONL event log")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "swipedeck", version)
			return err
		},
	}
}
