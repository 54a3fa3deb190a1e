package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clarvo-ai/modelgen/internal/codegen"
	"github.com/clarvo-ai/modelgen/internal/discovery"
	"github.com/clarvo-ai/modelgen/internal/lock"
	"github.com/clarvo-ai/modelgen/internal/report"
	"github.com/clarvo-ai/modelgen/internal/schema"
)

var (
	generateOutput   string
	generateSnapshot string
	generateReport   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Regenerate models from the current schema",
	Long: `Reflect the configured schema, infer relationships, and write the models
file. The file is replaced atomically; a lock next to it keeps concurrent runs
from interleaving.`,
	RunE: runGenerate,
}

func addGenerateFlags(c *cobra.Command) {
	c.Flags().StringVarP(&generateOutput, "output", "o", "", "output path for generated models (default: models/models_gen.go)")
	c.Flags().StringVar(&generateSnapshot, "from-snapshot", "", "generate from a schema snapshot written by `modelgen discover` instead of a live database")
	c.Flags().StringVar(&generateReport, "report", "", "write a JSON generation report to this path")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generateOutput != "" {
		cfg.Output.Path = generateOutput
	}

	lockPath := lock.PathFor(cfg.Output.Path)
	if err := lock.Acquire(lockPath); err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	defer func() {
		if err := lock.Release(lockPath); err != nil {
			logger.Warn("releasing lock", "path", lockPath, "error", err)
		}
	}()

	s, err := loadSchema(cmd.Context(), generateSnapshot)
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

	if err := codegen.WriteFile(cfg.Output.Path, result.Source); err != nil {
		return fmt.Errorf("writing models: %w", err)
	}
	fmt.Printf("Models written to %s\n", cfg.Output.Path)

	rep := report.GenerateReport(
		cfg.Source.Driver, generateSnapshot, s, result.Graph,
		result.Order, result.Relationships, result.JoinTables, result.Cycles,
		report.NewOutputSummary(cfg.Output.Path, cfg.Output.Package, result.Source),
	)
	for _, w := range rep.Warnings {
		logger.Warn(w)
	}
	fmt.Fprint(cmd.OutOrStdout(), "\n"+report.FormatText(rep))
	if generateReport != "" {
		if err := report.WriteJSON(rep, generateReport); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Report written to %s\n", generateReport)
	}
	return nil
}

// loadSchema reads a snapshot when one is given, otherwise reflects the
// configured database.
func loadSchema(ctx context.Context, snapshot string) (*schema.Schema, error) {
	if snapshot != "" {
		s, err := schema.LoadYAML(snapshot)
		if err != nil {
			return nil, fmt.Errorf("loading snapshot: %w", err)
		}
		logger.Info("schema loaded from snapshot", "path", snapshot, "tables", len(s.Tables))
		return s, nil
	}

	d, err := discovery.New(&cfg.Source, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing discoverer: %w", err)
	}
	defer d.Close()

	if err := d.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	s, err := d.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering schema: %w", err)
	}
	return s, nil
}

func init() {
	addGenerateFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}
