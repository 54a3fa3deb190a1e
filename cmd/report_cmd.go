package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clarvo-ai/modelgen/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <path>",
	Short: "Print a saved generation report",
	Long:  `Read a JSON report written by ` + "`modelgen generate --report`" + ` and print it as text.`,
	Args:  cobra.ExactArgs(1),
	// Reading a report needs neither config nor database.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := report.ReadJSON(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report.FormatText(rep))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
