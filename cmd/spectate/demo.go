package main

import (
	"github.com/aretw0/spectate/internal/cli"
	"github.com/aretw0/spectate/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo [scenario...]",
	Short: "Run the scripted scenarios on a demo inventory",
	Long: `Runs scripted changes on inventories linked under a warehouse and prints
every batch the warehouse views receive. Name scenarios to run only those.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		markdown, _ := cmd.Flags().GetBool("markdown")
		plain, _ := cmd.Flags().GetBool("plain")
		quiet, _ := cmd.Flags().GetBool("quiet")

		out := cmd.OutOrStdout()
		if !quiet {
			tui.PrintBanner(out)
		}
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.RunDemo(ctx, out, cli.DemoOptions{
			Markdown: markdown,
			Plain:    plain,
			Only:     args,
		})
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().Bool("markdown", false, "Render a markdown report of the delivered batches")
	demoCmd.Flags().Bool("plain", false, "Disable colours")
	demoCmd.Flags().BoolP("quiet", "q", false, "Skip the banner")
}
