package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// stdoutPath selects standard output for --output.
const stdoutPath = "-"

var discoverOutput string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Write the reflected schema as a YAML snapshot",
	Long: `Connect to the configured database and write the reflected tables, keys,
indexes and enum metadata as YAML. The snapshot can be committed and fed back
with ` + "`modelgen generate --from-snapshot`" + `. Pass -o - to print the
snapshot instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("discovering schema", "schema", cfg.Source.Schema)
		s, err := loadSchema(cmd.Context(), "")
		if err != nil {
			return err
		}

		if discoverOutput == stdoutPath {
			data, err := s.ToYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}

		fmt.Println(s.Summary())

		if err := s.WriteYAML(discoverOutput); err != nil {
			return fmt.Errorf("writing schema: %w", err)
		}
		fmt.Printf("\nSchema written to %s\n", discoverOutput)
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverOutput, "output", "o", "modelgen-schema.yaml", "output path for the schema snapshot, or - for stdout")
	rootCmd.AddCommand(discoverCmd)
}
