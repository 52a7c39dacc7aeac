package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ksched/internal/logging"
	"ksched/internal/sched"
)

const version = "0.2.0"

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ksched",
		Short: "ksched is a preemptive task scheduler simulator",
		Long:  "ksched runs a priority-scheduled task mix against a tick clock and traces every scheduling decision.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(flagLogLevel, flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "config.yml", "Path to the YAML config")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newVersionCmd(),
	)
	return root
}

func newRunCmd() *cobra.Command {
	var ticks int64
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation described by the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := sched.Load(flagConfig)
			if ticks > 0 {
				cfg.RunTicks = ticks
			}
			return runSimulation(cfg, logger)
		},
	}
	cmd.Flags().Int64Var(&ticks, "ticks", 0, "Override the configured simulation length")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ksched version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("ksched " + version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
