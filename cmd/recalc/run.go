package main

import (
	"context"

	"github.com/aretw0/recalc/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <workbook>",
	Short: "Evaluate a workbook once",
	Long: `Loads the workbook, applies the --set values in order and prints every
variable with the session log. The result is handed off to the configured store.

With --watch the workbook is evaluated again every time its file changes.`,
	Example: `  recalc run payroll --set Global.Hours=10 --set Global.Rate=12.5
  recalc run payroll --json | jq '.state'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{Workbook: args[0]}
		opts.Sets, _ = cmd.Flags().GetStringArray("set")
		opts.Level, _ = cmd.Flags().GetString("level")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()
		cmd.SetContext(sc)

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(sc))

		return cli.Execute(sc, a.stack.Engine, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayP("set", "s", nil, "Input value as namespace.name=value (repeatable)")
	runCmd.Flags().String("level", "", "Lowest session log level to keep (default warning)")
	runCmd.Flags().Bool("json", false, "Print the result as JSON")
	runCmd.Flags().BoolP("watch", "w", false, "Evaluate again when the workbook changes")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
