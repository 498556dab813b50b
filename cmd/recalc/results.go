package main

import (
	"context"

	"github.com/aretw0/recalc/internal/cli"
	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Browse stored evaluation results",
}

var resultsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List stored results",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(cmd.Context()))
		return cli.ListResults(cmd.Context(), a.stack.Engine, cmd.OutOrStdout())
	},
}

var resultsInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Show a stored result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(cmd.Context()))
		return cli.InspectResult(cmd.Context(), a.stack.Engine, args[0], asJSON, cmd.OutOrStdout())
	},
}

var resultsRemoveCmd = &cobra.Command{
	Use:     "rm <session-id>...",
	Aliases: []string{"delete"},
	Short:   "Delete stored results",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(cmd.Context()))
		return cli.RemoveResults(cmd.Context(), a.stack.Engine, args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(resultsListCmd, resultsInspectCmd, resultsRemoveCmd)

	resultsInspectCmd.Flags().Bool("json", false, "Print the result as JSON")
}
