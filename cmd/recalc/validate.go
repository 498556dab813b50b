package main

import (
	"context"

	"github.com/aretw0/recalc/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workbook>",
	Short: "Check that a workbook builds and evaluates cleanly",
	Long: `Loads the workbook, checks its structure, builds its session graph and
evaluates its defaults. Nothing is written to the result store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(cmd.Context()))
		return cli.Validate(cmd.Context(), a.stack.Engine, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
