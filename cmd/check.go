package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clarvo-ai/modelgen/internal/codegen"
	"github.com/clarvo-ai/modelgen/internal/lock"
)

var checkSnapshot string

// errStale is returned when the models file differs from a fresh generation.
var errStale = errors.New("generated models are out of date; run `modelgen generate`")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the models file matches the current schema",
	Long: `Regenerate the models in memory and compare them with the file on disk.
Exits non-zero when they differ, which makes it usable as a CI gate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureNotWriting(cfg.Output.Path); err != nil {
			return err
		}

		s, err := loadSchema(cmd.Context(), checkSnapshot)
		if err != nil {
			return err
		}

		g := &codegen.Generator{
			Config:  cfg,
			Schema:  s,
			TypeMap: codegen.TypeMapFor(cfg),
			Logger:  logger,
		}
		result, err := g.Generate()
		if err != nil {
			return fmt.Errorf("generating models: %w", err)
		}

		current, err := os.ReadFile(cfg.Output.Path)
		if err != nil {
			return fmt.Errorf("reading models: %w", err)
		}
		if !bytes.Equal(current, result.Source) {
			return errStale
		}

		fmt.Printf("%s is up to date.\n", cfg.Output.Path)
		return nil
	},
}

// ensureNotWriting fails while a generate run holds the lock for output. A
// file that is being rewritten would compare as stale.
func ensureNotWriting(output string) error {
	path := lock.PathFor(output)
	held, pid, err := lock.IsHeld(path)
	if err != nil {
		return fmt.Errorf("checking lock: %w", err)
	}
	if held {
		return &lock.HeldError{Path: path, PID: pid}
	}
	return nil
}

func init() {
	checkCmd.Flags().StringVar(&checkSnapshot, "from-snapshot", "", "compare against a schema snapshot instead of a live database")
	rootCmd.AddCommand(checkCmd)
}
