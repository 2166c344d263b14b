package main

import (
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jhwbarlow/sockwho/internal/tracer"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Print the events of a built-in scenario without loading any BPF",
	Long: "Run a fixed scenario of bind, connect, sendto and TCP state tracepoint hits " +
		"through the userspace pipeline, for trying sockwho out without root",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync()

		return tracer.Simulate(cmd.Context(), cfg, os.Stdout,
			logger.Sugar().With("session", uuid.NewString()))
	},
}
