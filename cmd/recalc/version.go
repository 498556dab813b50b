package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/recalc"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of recalc",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "recalc version %s\n", strings.TrimSpace(recalc.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
