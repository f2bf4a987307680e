package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/spectate/internal/cli"
	"github.com/aretw0/spectate/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "spectate",
	Short: "Spectate shows Go models announcing their own changes",
	Long: `Spectate intercepts the mutating methods of plain Go types and delivers
the changes they describe to views, in batches shaped by hold, rollback and
mute transactions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level, _ = cmd.Flags().GetString("log-level")
			if err := loaded.Validate(); err != nil {
				return err
			}
		}
		cfg = loaded

		logger, err = cli.NewLogger(cfg.Log)
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML or JSON config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
