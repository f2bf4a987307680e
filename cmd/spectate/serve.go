package main

import (
	"github.com/aretw0/spectate/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP debug server",
	Long: `Starts an HTTP server exposing the batches delivered by a simulated
warehouse: /batches, /batches/{seq}, /events (SSE), /metrics and /healthz.
Batches are also published to Redis when redis.addr is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("redis") {
			cfg.Redis.Addr, _ = cmd.Flags().GetString("redis")
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		if err := cli.Serve(ctx, cfg, logger); err != nil {
			return err
		}
		if sig := ctx.Signal(); sig != nil {
			logger.Info("server stopped", "signal", sig.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().String("redis", "", "Redis address to publish batches to")
}
