package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/spectate"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of spectate",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "spectate version %s\n", strings.TrimSpace(spectate.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
